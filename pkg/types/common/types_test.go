package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagination_Validate(t *testing.T) {
	assert.NoError(t, Pagination{Page: 1, PageSize: 20}.Validate())
	assert.Error(t, Pagination{Page: 0, PageSize: 20}.Validate())
	assert.Error(t, Pagination{Page: 1, PageSize: 0}.Validate())
	assert.Error(t, Pagination{Page: 1, PageSize: MaxPageSize + 1}.Validate())
}

func TestPagination_OffsetLimit(t *testing.T) {
	p := Pagination{Page: 3, PageSize: 25}
	assert.Equal(t, 50, p.Offset())
	assert.Equal(t, 25, p.Limit())
}

func TestGenerateID(t *testing.T) {
	assert.Len(t, GenerateID(""), 36)
	id := GenerateID("evt")
	assert.Equal(t, "evt-", id[:4])
	assert.NotEqual(t, GenerateID("evt"), id)
}

//Personal.AI order the ending
