package photobooth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"photobooth/capture"
)

func nowAsString() string {
	return time.Now().Format("2006.01.02_15.04.05")
}

// PictureMeta is written next to every picture. The JPEG itself is stored
// as the camera delivered it, so viewers need the rotation and reflection.
type PictureMeta struct {
	Taken      time.Time    `yaml:"taken"`
	Mode       capture.Mode `yaml:"mode"`
	Camera     int          `yaml:"camera"`
	Rotation   int          `yaml:"rotation"`
	Reflection bool         `yaml:"reflection"`
}

// Store keeps pictures in a directory as <timestamp>.jpg with a
// <timestamp>.yaml sidecar.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the picture and its sidecar and returns the picture path.
// Pictures taken within the same second get a numeric suffix.
func (s *Store) Save(timestamp string, data []byte, meta PictureMeta) (string, error) {
	pic, name, err := s.reserve(timestamp)
	if err != nil {
		return "", err
	}
	_, err = pic.Write(data)
	if cerr := pic.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write picture %s: %w", pic.Name(), err)
	}

	sidecar, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode sidecar: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name+".yaml"), sidecar, 0o644); err != nil {
		return "", fmt.Errorf("write sidecar: %w", err)
	}
	return pic.Name(), nil
}

func (s *Store) reserve(timestamp string) (*os.File, string, error) {
	for n := 1; n < 100; n++ {
		name := timestamp
		if n > 1 {
			name = fmt.Sprintf("%s_%d", timestamp, n)
		}
		f, err := os.OpenFile(filepath.Join(s.dir, name+".jpg"), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("create picture: %w", err)
		}
		return f, name, nil
	}
	return nil, "", fmt.Errorf("too many pictures at %s", timestamp)
}
