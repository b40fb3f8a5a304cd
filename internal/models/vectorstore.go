package models

import (
	"fmt"
	"strings"
)

// VectorStoreKind names a vector store as the directory and the settings screens know it.
type VectorStoreKind string

const (
	StorePinecone    VectorStoreKind = "Pinecone"
	StoreQdrant      VectorStoreKind = "Qdrant"
	StoreAzureSearch VectorStoreKind = "AzureOpenAI"
)

var AllStores = []VectorStoreKind{StorePinecone, StoreQdrant, StoreAzureSearch}

// ParseStore matches a store name case-insensitively.
func ParseStore(s string) (VectorStoreKind, error) {
	for _, k := range AllStores {
		if strings.EqualFold(string(k), strings.TrimSpace(s)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown vector store %q", s)
}

// VectorStoreRegistration records that a (store, index) pair is provisioned for a department.
type VectorStoreRegistration struct {
	ID           int64  `json:"id,omitempty"`
	VectorIndex  string `json:"vectorIndex"`
	Type         string `json:"type"`
	DepartmentID int64  `json:"departmentId"`
}

// PineconeSpec carries the pinecone create parameters. Region applies to serverless,
// Environment/PodType/Pods to pod-based capacity.
type PineconeSpec struct {
	Dimension   int    `json:"dimension"`
	Metric      string `json:"metric"`
	Timeout     int    `json:"timeout"`
	Capacity    string `json:"capacity"` // serverless|pods
	Cloud       string `json:"cloud"`
	Region      string `json:"region,omitempty"`
	Environment string `json:"environment,omitempty"`
	PodType     string `json:"podType,omitempty"`
	Pods        int    `json:"pods,omitempty"`
}

type QdrantSpec struct {
	Size     int    `json:"size"`
	Distance string `json:"distance"`
}

type AzureSearchField struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Key        bool   `json:"key"`
	Index      bool   `json:"index"`
	Searchable bool   `json:"searchable"`
}

// IndexSpec is the store-specific create request; exactly one of the specs is used, chosen by Store.
type IndexSpec struct {
	Store        VectorStoreKind    `json:"store"`
	Name         string             `json:"name"`
	DepartmentID int64              `json:"departmentId"`
	Pinecone     *PineconeSpec      `json:"pinecone,omitempty"`
	Qdrant       *QdrantSpec        `json:"qdrant,omitempty"`
	AzureFields  []AzureSearchField `json:"azureFields,omitempty"`
}

func (s IndexSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("index name is required")
	}
	switch s.Store {
	case StorePinecone:
		p := s.Pinecone
		if p == nil || p.Dimension <= 0 || p.Metric == "" {
			return fmt.Errorf("pinecone requires dimension and metric")
		}
		switch p.Capacity {
		case "serverless":
			if p.Region == "" {
				return fmt.Errorf("serverless pinecone requires region")
			}
		case "pods":
			if p.Environment == "" || p.PodType == "" || p.Pods <= 0 {
				return fmt.Errorf("pod pinecone requires environment, podType and pods")
			}
		default:
			return fmt.Errorf("pinecone capacity must be serverless or pods")
		}
	case StoreQdrant:
		if s.Qdrant == nil || s.Qdrant.Size <= 0 || s.Qdrant.Distance == "" {
			return fmt.Errorf("qdrant requires size and distance")
		}
	case StoreAzureSearch:
		if len(s.AzureFields) == 0 {
			return fmt.Errorf("azure search requires at least one field")
		}
	default:
		return fmt.Errorf("unknown vector store %q", s.Store)
	}
	return nil
}

// PhaseStatus is the outcome of one step of a two-system operation.
type PhaseStatus string

const (
	PhaseOK       PhaseStatus = "ok"
	PhaseConflict PhaseStatus = "conflict"
	PhaseExists   PhaseStatus = "exists"
	PhaseFailed   PhaseStatus = "failed"
	PhaseSkipped  PhaseStatus = "skipped"
)

type PhaseOutcome struct {
	Status  PhaseStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// SagaResult reports the registration and provisioning steps independently; they are not transactional.
type SagaResult struct {
	Store        VectorStoreKind `json:"store"`
	Name         string          `json:"name"`
	Registration PhaseOutcome    `json:"registration"`
	Provisioning PhaseOutcome    `json:"provisioning"`
	Created      bool            `json:"created"`
	Deleted      bool            `json:"deleted"`
}
