package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"sync_service/internal/models"
)

// colorOptionLabel is the vendor's Greek label for the color option block.
const colorOptionLabel = "ΧΡΩΜΑ"

type adamHomeFeed struct {
	XMLName xml.Name         `xml:"rss"`
	Channel *adamHomeChannel `xml:"channel"`
}

type adamHomeChannel struct {
	Items []adamHomeItem `xml:"item"`
}

type adamHomeItem struct {
	Title           string          `xml:"title"`
	Link            string          `xml:"link"`
	Description     string          `xml:"description"`
	ImageLink       string          `xml:"image_link"`
	ModelNumber     string          `xml:"model_number"`
	PriceWithVAT    string          `xml:"price_with_vat"`
	PriceWithoutVAT string          `xml:"price_without_vat"`
	Size            string          `xml:"size"`
	Category        string          `xml:"category"`
	Availability    string          `xml:"availability"`
	Option          *adamHomeOption `xml:"option"`
}

type adamHomeOption struct {
	Name   string                `xml:"option_name"`
	Values []adamHomeOptionValue `xml:"option_value"`
}

type adamHomeOptionValue struct {
	Name string `xml:"option_value_name"`
}

// AdamHomeParser reads the rss/channel/item feed variant. Stock is a
// human-readable availability string.
type AdamHomeParser struct {
	client *http.Client
}

func NewAdamHome() *AdamHomeParser {
	return &AdamHomeParser{client: &http.Client{}}
}

func (p *AdamHomeParser) FetchAndParse(ctx context.Context, xmlURL string) ([]models.NormalizedProduct, error) {
	const op = "feed.AdamHomeParser.FetchAndParse"

	data, err := fetchXML(ctx, p.client, xmlURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validateXML(data); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var f adamHomeFeed
	if err := decodeXML(data, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if f.Channel == nil {
		return nil, fmt.Errorf("%s: %w", op, &ParseError{Msg: "rss channel element missing"})
	}

	products := make([]models.NormalizedProduct, 0, len(f.Channel.Items))
	for _, item := range f.Channel.Items {
		product := p.normalize(item)

		stock := strings.ToLower(product.Stock)
		if !strings.Contains(stock, "in stock") && !strings.Contains(stock, "available") {
			continue
		}

		products = append(products, product)
	}

	return products, nil
}

func (p *AdamHomeParser) normalize(item adamHomeItem) models.NormalizedProduct {
	colors := "N/A"
	if item.Option != nil && cleanCDATA(item.Option.Name) == colorOptionLabel {
		names := make([]string, 0, len(item.Option.Values))
		for _, v := range item.Option.Values {
			names = append(names, strings.TrimSpace(v.Name))
		}
		colors = strings.Join(names, ", ")
	}

	return models.NormalizedProduct{
		Image:           cleanCDATA(item.ImageLink),
		Title:           cleanCDATA(item.Title),
		Model:           cleanCDATA(item.ModelNumber),
		Colors:          colors,
		Size:            cleanCDATA(item.Size),
		Stock:           cleanCDATA(item.Availability),
		PriceWithVAT:    parsePrice(item.PriceWithVAT),
		PriceWithoutVAT: parsePrice(item.PriceWithoutVAT),
		Description:     cleanCDATA(item.Description),
		Category:        cleanCDATA(item.Category),
		Link:            cleanCDATA(item.Link),
	}
}
