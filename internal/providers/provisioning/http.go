package provisioning

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/utils"
)

type endpoints struct {
	list    string
	create  string
	delete  string
	nameKey string // body key naming the index in delete calls
}

// HTTPProvisioner speaks one provider's dialect of the provisioning API. All calls are POSTs.
type HTTPProvisioner struct {
	kind    models.VectorStoreKind
	http    *resty.Client
	paths   endpoints
	payload func(models.IndexSpec) (any, error)
	log     *logrus.Logger
}

func newHTTP(kind models.VectorStoreKind, baseURL string, timeout time.Duration, log *logrus.Logger, paths endpoints, payload func(models.IndexSpec) (any, error)) *HTTPProvisioner {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	hc := resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")).SetTimeout(timeout)
	return &HTTPProvisioner{kind: kind, http: hc, paths: paths, payload: payload, log: log}
}

func NewPinecone(baseURL string, timeout time.Duration, log *logrus.Logger) *HTTPProvisioner {
	return newHTTP(models.StorePinecone, baseURL, timeout, log, endpoints{
		list: "/pinecone/listindexes", create: "/pinecone/create", delete: "/pinecone/delete", nameKey: "index_name",
	}, pineconePayload)
}

func NewQdrant(baseURL string, timeout time.Duration, log *logrus.Logger) *HTTPProvisioner {
	return newHTTP(models.StoreQdrant, baseURL, timeout, log, endpoints{
		list: "/qdrant/listcollection", create: "/qdrant/create", delete: "/qdrant/deletecollection", nameKey: "collection_name",
	}, qdrantPayload)
}

func NewAzureSearch(baseURL string, timeout time.Duration, log *logrus.Logger) *HTTPProvisioner {
	return newHTTP(models.StoreAzureSearch, baseURL, timeout, log, endpoints{
		list: "/azuresearch/listindexes", create: "/azuresearch/create", delete: "/azuresearch/delete", nameKey: "index_name",
	}, azurePayload)
}

func (p *HTTPProvisioner) Kind() models.VectorStoreKind { return p.kind }

func (p *HTTPProvisioner) post(ctx context.Context, op, path string, body any) ([]byte, error) {
	req := p.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Post(path)
	if err != nil {
		p.log.WithFields(logrus.Fields{"op": op, "store": p.kind}).WithError(err).Warn("provisioning unreachable")
		return nil, utils.Network(op, err)
	}
	if !resp.IsSuccess() {
		p.log.WithFields(logrus.Fields{"op": op, "store": p.kind, "status": resp.StatusCode()}).Warn("provisioning call failed")
		return nil, utils.FromStatus(op, resp.StatusCode(), http.StatusText(resp.StatusCode()))
	}
	return resp.Body(), nil
}

func (p *HTTPProvisioner) ListIndexes(ctx context.Context) ([]string, error) {
	const op = "Provisioning.ListIndexes"
	raw, err := p.post(ctx, op, p.paths.list, nil)
	if err != nil {
		return nil, err
	}
	names, err := decodeNameList(raw)
	if err != nil {
		return nil, utils.Protocol(op, "unexpected index list", err)
	}
	return names, nil
}

func (p *HTTPProvisioner) Create(ctx context.Context, spec models.IndexSpec) error {
	const op = "Provisioning.Create"
	if spec.Store != p.kind {
		return utils.E(utils.CodeInvalidArgument, op, "spec is for another vector store", nil)
	}
	if err := spec.Validate(); err != nil {
		return utils.E(utils.CodeInvalidArgument, op, err.Error(), err)
	}
	body, err := p.payload(spec)
	if err != nil {
		return utils.E(utils.CodeInvalidArgument, op, err.Error(), err)
	}
	_, err = p.post(ctx, op, p.paths.create, body)
	return err
}

func (p *HTTPProvisioner) Delete(ctx context.Context, name string) error {
	const op = "Provisioning.Delete"
	if strings.TrimSpace(name) == "" {
		return utils.E(utils.CodeInvalidArgument, op, "index name is required", nil)
	}
	_, err := p.post(ctx, op, p.paths.delete, map[string]string{p.paths.nameKey: name})
	return err
}

// decodeNameList accepts every list shape the provisioning API produces: a JSON string wrapping
// {"message":[{"name":..}]}, the same object unwrapped, or a plain array of names.
func decodeNameList(raw []byte) ([]string, error) {
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = []byte(encoded)
	}

	var plain []string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return nonEmpty(plain), nil
	}

	var named []struct {
		Name string `json:"name"`
	}
	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Message) > 0 {
		if err := json.Unmarshal(envelope.Message, &named); err != nil {
			return nil, err
		}
	} else if err := json.Unmarshal(raw, &named); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(named))
	for _, n := range named {
		out = append(out, n.Name)
	}
	return nonEmpty(out), nil
}

func nonEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
