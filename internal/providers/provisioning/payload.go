package provisioning

import (
	"fmt"

	"github.com/vartik/vartikgpt/internal/models"
)

type pineconeSpecBody struct {
	SpecType    string `json:"spectype"`
	Cloud       string `json:"cloud"`
	Region      string `json:"region,omitempty"`
	Environment string `json:"environment,omitempty"`
	PodType     string `json:"podType,omitempty"`
	Pods        int    `json:"pods,omitempty"`
}

type pineconeFields struct {
	Dimension int              `json:"dimension"`
	Metric    string           `json:"metric"`
	Timeout   int              `json:"timeout"`
	Spec      pineconeSpecBody `json:"spec"`
}

type pineconeCreate struct {
	IndexName string         `json:"index_name"`
	Fields    pineconeFields `json:"fields"`
}

func pineconePayload(s models.IndexSpec) (any, error) {
	p := s.Pinecone
	if p == nil {
		return nil, fmt.Errorf("pinecone spec is required")
	}
	spec := pineconeSpecBody{SpecType: p.Capacity, Cloud: p.Cloud}
	if p.Capacity == "serverless" {
		spec.Region = p.Region
	} else {
		spec.Environment = p.Environment
		spec.PodType = p.PodType
		spec.Pods = p.Pods
	}
	return pineconeCreate{
		IndexName: s.Name,
		Fields:    pineconeFields{Dimension: p.Dimension, Metric: p.Metric, Timeout: p.Timeout, Spec: spec},
	}, nil
}

type qdrantCreate struct {
	CollectionName string `json:"collection_name"`
	Fields         struct {
		VectorSize     int    `json:"vector_size"`
		VectorDistance string `json:"vector_distance"`
	} `json:"fields"`
}

func qdrantPayload(s models.IndexSpec) (any, error) {
	if s.Qdrant == nil {
		return nil, fmt.Errorf("qdrant spec is required")
	}
	body := qdrantCreate{CollectionName: s.Name}
	body.Fields.VectorSize = s.Qdrant.Size
	body.Fields.VectorDistance = s.Qdrant.Distance
	return body, nil
}

type azureCreate struct {
	IndexName string                    `json:"index_name"`
	Fields    []models.AzureSearchField `json:"fields"`
}

func azurePayload(s models.IndexSpec) (any, error) {
	if len(s.AzureFields) == 0 {
		return nil, fmt.Errorf("azure search fields are required")
	}
	return azureCreate{IndexName: s.Name, Fields: s.AzureFields}, nil
}
