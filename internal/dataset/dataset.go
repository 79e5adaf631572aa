// Package dataset reads job listings from CSV files.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/dshills/jobmatch/pkg/types"
)

// Errors reported by the loader. Both are fatal for a recommendation run.
var (
	ErrNotFound      = errors.New("dataset not found")
	ErrMissingColumn = errors.New("dataset is missing a required column")
)

// Required columns
const (
	ColumnTitle       = "title"
	ColumnCompany     = "company"
	ColumnLocation    = "location"
	ColumnDescription = "description"
)

var requiredColumns = []string{ColumnTitle, ColumnCompany, ColumnLocation, ColumnDescription}

// Loader reads a whole dataset into memory.
type Loader interface {
	Load(path string) ([]types.JobListing, error)
}

// CSVLoader loads listings from a CSV file with a header row.
type CSVLoader struct{}

// Load reads path. Header names are matched case-insensitively; columns
// other than the required four are kept in JobListing.Extra.
func (CSVLoader) Load(path string) ([]types.JobListing, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	listings, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return listings, nil
}

// Parse reads listings from CSV data. An input with only a header yields
// no listings and no error.
func Parse(r io.Reader) ([]types.JobListing, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	names := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		name = strings.ToLower(strings.TrimSpace(name))
		names[i] = name
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}

	var listings []types.JobListing
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(listings)+1, err)
		}

		listing := types.JobListing{
			Row:         len(listings),
			Title:       record[columns[ColumnTitle]],
			Company:     record[columns[ColumnCompany]],
			Location:    record[columns[ColumnLocation]],
			Description: record[columns[ColumnDescription]],
		}
		for i, name := range names {
			if isRequired(name) || columns[name] != i {
				continue
			}
			if listing.Extra == nil {
				listing.Extra = make(map[string]string)
			}
			listing.Extra[name] = record[i]
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

func isRequired(name string) bool {
	for _, col := range requiredColumns {
		if col == name {
			return true
		}
	}
	return false
}

// ReadText returns the contents of a text file, such as a saved query.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
