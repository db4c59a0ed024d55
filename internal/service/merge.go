package service

import "github.com/cloo-solutions/wellrag/internal/domain"

// Merge combines the three extractor results into a WellReport. A nil section
// is replaced by its canonical empty shape; values are never transformed.
func Merge(header, specs, geology map[string]any) domain.WellReport {
	if header == nil {
		header = domain.EmptyHeader()
	}
	if specs == nil {
		specs = domain.EmptySpecs()
	}
	if geology == nil {
		geology = domain.EmptyGeology()
	}
	return domain.WellReport{Header: header, Specs: specs, Geology: geology}
}
