package storage

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path"

	"github.com/matst80/slask-docs/pkg/common/jsoncompat"
	"github.com/matst80/slask-docs/pkg/types"
)

const settingsFile = "settings.json"

// DiskStorage persists the operator settings between restarts.
type DiskStorage struct {
	BaseDir string
}

func NewDiskStorage(baseDir string) *DiskStorage {
	if baseDir == "" {
		baseDir = "."
	}
	return &DiskStorage{BaseDir: baseDir}
}

func (d *DiskStorage) fileName(name string) string {
	return path.Join(d.BaseDir, name)
}

func (d *DiskStorage) SaveJson(data any, filename string) error {
	bytes, err := jsoncompat.Marshal(data)
	if err != nil {
		return err
	}
	return os.WriteFile(d.fileName(filename), bytes, 0644)
}

func (d *DiskStorage) LoadJson(data any, filename string) error {
	bytes, err := os.ReadFile(d.fileName(filename))
	if err != nil {
		return err
	}
	return jsoncompat.Unmarshal(bytes, data)
}

// LoadSettings reads the persisted settings into types.CurrentSettings. A
// missing file is not an error, the defaults stay.
func (d *DiskStorage) LoadSettings() error {
	types.CurrentSettings.Lock()
	defer types.CurrentSettings.Unlock()
	err := d.LoadJson(types.CurrentSettings, settingsFile)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("no settings file, using defaults")
		return nil
	}
	return err
}

func (d *DiskStorage) SaveSettings() error {
	types.CurrentSettings.RLock()
	defer types.CurrentSettings.RUnlock()
	return d.SaveJson(types.CurrentSettings, settingsFile)
}
