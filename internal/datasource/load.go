package datasource

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/incidentline/pkg/debug"
	"github.com/vanderheijden86/incidentline/pkg/metrics"
	"github.com/vanderheijden86/incidentline/pkg/model"
)

// Load detects the source type of path and loads the incident from it.
func Load(ctx context.Context, path string) (*model.Incident, error) {
	source, err := Detect(path)
	if err != nil {
		return nil, err
	}
	return LoadFromSource(ctx, source)
}

// LoadFromSource loads an incident from a specific DataSource, dispatching to
// the appropriate reader based on source type. The result is validated.
func LoadFromSource(ctx context.Context, source DataSource) (*model.Incident, error) {
	defer metrics.Timer(metrics.DataLoad)()

	var (
		inc *model.Incident
		err error
	)
	switch source.Type {
	case SourceTypeSQLite:
		reader, openErr := NewSQLiteReader(source)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, openErr)
		}
		defer reader.Close()
		inc, err = reader.LoadIncident(ctx)

	case SourceTypeJSON:
		inc, err = LoadJSONFile(source.Path)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, source.Type)
	}
	if err != nil {
		return nil, err
	}
	if err := inc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid incident in %s: %w", source.Path, err)
	}
	debug.Log("datasource: loaded %s: %d records", source, len(inc.Records))
	return inc, nil
}

// LoadJSONFile decodes a JSON incident document.
func LoadJSONFile(path string) (*model.Incident, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading incident: %w", err)
	}
	return DecodeJSON(data)
}

// DecodeJSON decodes an incident document.
func DecodeJSON(data []byte) (*model.Incident, error) {
	var inc model.Incident
	if err := json.Unmarshal(data, &inc); err != nil {
		return nil, fmt.Errorf("parsing incident JSON: %w", err)
	}
	return &inc, nil
}

// SaveJSONFile writes inc as indented JSON.
func SaveJSONFile(path string, inc *model.Incident) error {
	data, err := json.MarshalIndent(inc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling incident: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing incident: %w", err)
	}
	return nil
}
