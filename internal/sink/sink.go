// Package sink decides where downloaded reports end up
package sink

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yildizm/GapReport/internal/logger"
)

// Saver persists a downloaded document and returns where it went
type Saver interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// validateName refuses names that could escape the destination
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("sink: empty file name")
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("sink: invalid file name %q", name)
	}
	return nil
}

// Multi saves to Primary and then copies to Archive. Only a Primary
// failure fails the save.
type Multi struct {
	Primary Saver
	Archive Saver
	Log     *logger.Logger
}

func (m *Multi) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	location, err := m.Primary.Save(ctx, name, contentType, data)
	if err != nil {
		return "", err
	}
	if m.Archive == nil {
		return location, nil
	}

	archived, err := m.Archive.Save(ctx, name, contentType, data)
	if err != nil {
		m.Log.WarnWithFields("archive copy failed", []logger.Field{
			logger.F("file", name),
			logger.Error(err),
		})
		return location, nil
	}
	m.Log.DebugWithFields("report archived", []logger.Field{
		logger.F("file", name),
		logger.F("location", archived),
	})
	return location, nil
}
