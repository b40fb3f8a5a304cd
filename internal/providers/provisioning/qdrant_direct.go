package provisioning

import (
	"context"
	"strings"

	"github.com/qdrant/go-client/qdrant"
	"github.com/sirupsen/logrus"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/utils"
)

// collectionAPI is the part of *qdrant.Client used here.
type collectionAPI interface {
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, collectionName string) error
}

// QdrantDirect manages collections over qdrant's gRPC API instead of the provisioning service.
// It is used when a qdrant host is configured.
type QdrantDirect struct {
	api    collectionAPI
	closer func() error
	log    *logrus.Logger
}

type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

func NewQdrantDirect(cfg QdrantConfig, log *logrus.Logger) (*QdrantDirect, error) {
	port := cfg.Port
	if port == 0 {
		port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, "Provisioning.NewQdrantDirect", "qdrant client", err)
	}
	return &QdrantDirect{api: client, closer: client.Close, log: log}, nil
}

func (q *QdrantDirect) Kind() models.VectorStoreKind { return models.StoreQdrant }

func (q *QdrantDirect) ListIndexes(ctx context.Context) ([]string, error) {
	names, err := q.api.ListCollections(ctx)
	if err != nil {
		q.log.WithError(err).Warn("qdrant list collections failed")
		return nil, utils.Network("Qdrant.ListIndexes", err)
	}
	return names, nil
}

func (q *QdrantDirect) Create(ctx context.Context, spec models.IndexSpec) error {
	const op = "Qdrant.Create"
	if spec.Store != models.StoreQdrant {
		return utils.E(utils.CodeInvalidArgument, op, "spec is for another vector store", nil)
	}
	if err := spec.Validate(); err != nil {
		return utils.E(utils.CodeInvalidArgument, op, err.Error(), err)
	}
	dist, ok := parseDistance(spec.Qdrant.Distance)
	if !ok {
		return utils.E(utils.CodeInvalidArgument, op, "unknown qdrant distance", nil)
	}
	err := q.api.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: spec.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(spec.Qdrant.Size),
			Distance: dist,
		}),
	})
	if err != nil {
		q.log.WithError(err).WithField("collection", spec.Name).Warn("qdrant create collection failed")
		return utils.Network(op, err)
	}
	return nil
}

func (q *QdrantDirect) Delete(ctx context.Context, name string) error {
	if err := q.api.DeleteCollection(ctx, name); err != nil {
		q.log.WithError(err).WithField("collection", name).Warn("qdrant delete collection failed")
		return utils.Network("Qdrant.Delete", err)
	}
	return nil
}

func (q *QdrantDirect) Close() error {
	if q.closer == nil {
		return nil
	}
	return q.closer()
}

func parseDistance(s string) (qdrant.Distance, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cosine":
		return qdrant.Distance_Cosine, true
	case "euclid", "euclidean":
		return qdrant.Distance_Euclid, true
	case "dot":
		return qdrant.Distance_Dot, true
	case "manhattan":
		return qdrant.Distance_Manhattan, true
	default:
		return qdrant.Distance_UnknownDistance, false
	}
}
