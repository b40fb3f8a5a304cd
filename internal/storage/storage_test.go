package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	assert.Equal(t, "hr-docs/policy.pdf", ObjectName("hr-docs", "policy.pdf"))
	assert.Equal(t, "hr-docs/policy.pdf", ObjectName("/hr-docs/", "../../etc/policy.pdf"))
	assert.Equal(t, "hr-docs/report.docx", ObjectName("hr-docs", `C:\Users\ana\report.docx`))
	assert.Equal(t, "notes.txt", ObjectName("", "notes.txt"))
}
