package storage

import "errors"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrNoProducts      = errors.New("no active products for supplier")
	ErrReportNotFound  = errors.New("sync report not found")
)
