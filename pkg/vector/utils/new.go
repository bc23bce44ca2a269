// Package vectorutils is the vector store utility package
package vectorutils

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inkwellhq/satchel/pkg/vector"
	"github.com/inkwellhq/satchel/pkg/vector/chroma"
	"github.com/inkwellhq/satchel/pkg/vector/qdrant"
)

type NewStoreOpts struct {
	ProviderType string
	TargetURL    string
	Host         string
	Port         int
	APIKey       string
	UseTLS       bool
	Collection   string
	Dimension    int
	Logger       *zap.Logger
}

func NewStore(o *NewStoreOpts) (vector.Store, error) {
	switch o.ProviderType {
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.Collection,
			Dimension:      o.Dimension,
		}, o.Logger)
	case "qdrant":
		return qdrant.NewDriver(qdrant.Config{
			Host:           o.Host,
			Port:           o.Port,
			APIKey:         o.APIKey,
			UseTLS:         o.UseTLS,
			CollectionName: o.Collection,
			Dimension:      o.Dimension,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
