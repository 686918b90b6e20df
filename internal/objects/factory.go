package objects

import (
	"fmt"

	"lvc-go/internal/config"
	"lvc-go/internal/lvc"
)

// NewObjectStoreFromConfig creates the on-disk object store under dir using
// the configured codec for new writes.
func NewObjectStoreFromConfig(cfg config.CompressionConfig, dir string) (lvc.ObjectStore, error) {
	codec, err := CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, fmt.Errorf("object store requires a directory")
	}
	return NewFileSystemObjectStore(dir, codec)
}
