package salesforce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		in, first, last string
	}{
		{"Ada Lovelace", "Ada", "Lovelace"},
		{"Mary Ann Evans", "Mary Ann", "Evans"},
		{"Cher", "", "Cher"},
		{"  ", "", "Unknown"},
	}
	for _, tt := range tests {
		first, last := SplitName(tt.in)
		assert.Equal(t, tt.first, first, tt.in)
		assert.Equal(t, tt.last, last, tt.in)
	}
}

func TestLeadFields(t *testing.T) {
	f := Lead{LastName: "Lovelace", Company: "Acme", Email: "ada@acme.com"}.Fields()
	assert.Equal(t, "Lovelace", f["LastName"])
	assert.Equal(t, LeadSource, f["LeadSource"])
	assert.NotContains(t, f, "FirstName")
	assert.NotContains(t, f, "Title")
}

func TestFindLeadIDsByEmail(t *testing.T) {
	var captured string
	mc := &mockClient{
		queryFn: func(_ context.Context, soql string, out any) error {
			captured = soql
			*(out.(*[]Lead)) = []Lead{{ID: "00Q1", Email: "Ada@Acme.com"}}
			return nil
		},
	}

	ids, err := FindLeadIDsByEmail(context.Background(), mc, "Lead", []string{"ada@acme.com", "o'brien@acme.com"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ada@acme.com": "00Q1"}, ids)
	assert.Contains(t, captured, "FROM Lead WHERE Email IN ('ada@acme.com', 'o\\'brien@acme.com')")
}

func TestFindLeadIDsByEmail_Error(t *testing.T) {
	mc := &mockClient{
		queryFn: func(context.Context, string, any) error { return errors.New("session expired") },
	}
	_, err := FindLeadIDsByEmail(context.Background(), mc, "Lead", []string{"a@b.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sf: find Lead by email")
}

func TestUpsertLeads(t *testing.T) {
	var inserted []map[string]any
	var updated []CollectionRecord
	mc := &mockClient{
		queryFn: func(_ context.Context, _ string, out any) error {
			*(out.(*[]Lead)) = []Lead{{ID: "00QOLD", Email: "old@acme.com"}}
			return nil
		},
		insertCollectionFn: func(_ context.Context, obj string, records []map[string]any) ([]CollectionResult, error) {
			assert.Equal(t, "Lead", obj)
			inserted = append(inserted, records...)
			return []CollectionResult{
				{ID: "00QNEW", Success: true},
				{Success: false, Errors: []string{"REQUIRED_FIELD_MISSING"}},
			}, nil
		},
		updateCollectionFn: func(_ context.Context, _ string, records []CollectionRecord) ([]CollectionResult, error) {
			updated = append(updated, records...)
			return []CollectionResult{{ID: records[0].ID, Success: true}}, nil
		},
	}

	res, err := UpsertLeads(context.Background(), mc, "Lead", []Lead{
		{LastName: "New", Company: "Acme", Email: "new@acme.com"},
		{LastName: "Old", Company: "Acme", Email: "OLD@acme.com"},
		{LastName: "Bad", Company: "Acme", Email: "bad@acme.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"REQUIRED_FIELD_MISSING"}, res.Errors)
	assert.Len(t, inserted, 2)
	require.Len(t, updated, 1)
	assert.Equal(t, "00QOLD", updated[0].ID)
}

func TestUpsertLeads_Batches(t *testing.T) {
	leads := make([]Lead, 450)
	for i := range leads {
		leads[i] = Lead{LastName: fmt.Sprintf("L%d", i), Company: "Acme", Email: fmt.Sprintf("l%d@acme.com", i)}
	}

	var queries, batches int
	mc := &mockClient{
		queryFn: func(_ context.Context, soql string, _ any) error {
			queries++
			assert.LessOrEqual(t, strings.Count(soql, "@"), maxBatchSize)
			return nil
		},
	}
	mc.insertCollectionFn = func(_ context.Context, _ string, records []map[string]any) ([]CollectionResult, error) {
		batches++
		assert.LessOrEqual(t, len(records), maxBatchSize)
		out := make([]CollectionResult, len(records))
		for i := range out {
			out[i].Success = true
		}
		return out, nil
	}

	res, err := UpsertLeads(context.Background(), mc, "Lead", leads)
	require.NoError(t, err)
	assert.Equal(t, 450, res.Created)
	assert.Equal(t, 3, queries)
	assert.Equal(t, 3, batches)
}

func TestUpsertLeads_InsertError(t *testing.T) {
	mc := &mockClient{
		insertCollectionFn: func(context.Context, string, []map[string]any) ([]CollectionResult, error) {
			return nil, errors.New("limit exceeded")
		},
	}
	_, err := UpsertLeads(context.Background(), mc, "Lead", []Lead{{LastName: "X", Email: "x@y.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert leads batch 0-1")
}

func TestUpsertLeads_Empty(t *testing.T) {
	res, err := UpsertLeads(context.Background(), &mockClient{}, "Lead", nil)
	require.NoError(t, err)
	assert.Zero(t, res.Created)
}

func TestEscapeSoql(t *testing.T) {
	assert.Equal(t, "o\\'brien", escapeSoql("o'brien"))
	assert.Equal(t, "plain", escapeSoql("plain"))
}
