package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"

	"sync_service/internal/models"
)

type homelineFeed struct {
	XMLName  xml.Name          `xml:"root"`
	Products *homelineProducts `xml:"products"`
}

type homelineProducts struct {
	Items []homelineItem `xml:"product"`
}

type homelineItem struct {
	Name                 string `xml:"name"`
	MPN                  string `xml:"mpn"`
	InStock              string `xml:"InStock"`
	Color                string `xml:"product_attribute_color"`
	Size                 string `xml:"product_attribute_size"`
	PriceWithVAT         string `xml:"price_with_vat"`
	PriceWithoutDiscount string `xml:"price_without_discount"`
	Image                string `xml:"image"`
	Description          string `xml:"description"`
	Category             string `xml:"category"`
	Link                 string `xml:"link"`
}

// HomelineParser reads the root/products/product feed variant. Stock is a
// strict Y/N marker and records without a model number are dropped.
type HomelineParser struct {
	client *http.Client
}

func NewHomeline() *HomelineParser {
	return &HomelineParser{client: &http.Client{}}
}

func (p *HomelineParser) FetchAndParse(ctx context.Context, xmlURL string) ([]models.NormalizedProduct, error) {
	const op = "feed.HomelineParser.FetchAndParse"

	data, err := fetchXML(ctx, p.client, xmlURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validateXML(data); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var f homelineFeed
	if err := decodeXML(data, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if f.Products == nil {
		return nil, fmt.Errorf("%s: %w", op, &ParseError{Msg: "products element missing"})
	}

	products := make([]models.NormalizedProduct, 0, len(f.Products.Items))
	for _, item := range f.Products.Items {
		product := p.normalize(item)

		if product.Stock != "Y" || product.Model == "" {
			continue
		}

		products = append(products, product)
	}

	return products, nil
}

func (p *HomelineParser) normalize(item homelineItem) models.NormalizedProduct {
	colors := cleanCDATA(item.Color)
	if colors == "" {
		colors = "N/A"
	}

	return models.NormalizedProduct{
		Image:  cleanCDATA(item.Image),
		Title:  cleanCDATA(item.Name),
		Model:  cleanCDATA(item.MPN),
		Colors: colors,
		Size:   cleanCDATA(item.Size),
		Stock:  cleanCDATA(item.InStock),
		// price_with_vat carries the sale price, price_without_discount
		// the original pre-discount price.
		PriceWithVAT:    parsePrice(item.PriceWithVAT),
		PriceWithoutVAT: parsePrice(item.PriceWithoutDiscount),
		Description:     cleanCDATA(item.Description),
		Category:        cleanCDATA(item.Category),
		Link:            cleanCDATA(item.Link),
	}
}
