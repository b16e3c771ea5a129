package backup

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"quicksale/backend/internal/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	reportSchemaFile  = "reports_backup.v1.json"
	productSchemaFile = "products_backup.v1.json"
	schemaBaseURL     = "https://quicksale.local/schemas/"
)

var (
	schemaOnce    sync.Once
	reportSchema  *jsonschema.Schema
	productSchema *jsonschema.Schema
	schemaErr     error
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	for _, name := range []string{reportSchemaFile, productSchemaFile} {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemaErr = fmt.Errorf("read schema %s: %w", name, err)
			return
		}
		if err := c.AddResource(schemaBaseURL+name, bytes.NewReader(raw)); err != nil {
			schemaErr = fmt.Errorf("add schema %s: %w", name, err)
			return
		}
	}

	reportSchema, schemaErr = c.Compile(schemaBaseURL + reportSchemaFile)
	if schemaErr != nil {
		return
	}
	productSchema, schemaErr = c.Compile(schemaBaseURL + productSchemaFile)
}

func schemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	schemaOnce.Do(compileSchemas)
	return reportSchema, productSchema, schemaErr
}

// DecodeReport validates a reports envelope payload. Any shape error rejects
// the whole report.
func DecodeReport(data json.RawMessage) (domain.Report, error) {
	var report domain.Report
	reportSchema, _, err := schemas()
	if err != nil {
		return report, err
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return report, domain.NewValidationError("report", "data is not valid JSON: %v", err)
	}
	if err := reportSchema.Validate(doc); err != nil {
		return report, domain.NewValidationError("report", "%s", describe(err))
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return report, domain.NewValidationError("report", "%v", err)
	}
	if report.DailySales == nil {
		report.DailySales = []domain.SummaryItem{}
	}
	return report, nil
}

// DecodeProducts validates a products envelope payload. data must be an
// array; elements that fail the product schema are dropped and counted.
func DecodeProducts(data json.RawMessage) ([]domain.Product, int, error) {
	_, productSchema, err := schemas()
	if err != nil {
		return nil, 0, err
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, 0, domain.NewValidationError("products", "data is not an array")
	}

	products := make([]domain.Product, 0, len(elements))
	dropped := 0
	for _, raw := range elements {
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			dropped++
			continue
		}
		if err := productSchema.Validate(doc); err != nil {
			dropped++
			continue
		}
		var p domain.Product
		if err := json.Unmarshal(raw, &p); err != nil {
			dropped++
			continue
		}
		products = append(products, p)
	}
	return products, dropped, nil
}

// describe flattens the innermost schema failure into one line.
func describe(err error) string {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}
	loc := verr.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, verr.Message)
}
