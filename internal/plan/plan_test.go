package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

func groupJSON(name string, terms ...string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	return fmt.Sprintf(`{"group_name":%q,"rationale":"Good fit.","google_search_terms":[%s]}`, name, strings.Join(quoted, ","))
}

func TestGenerate_Success(t *testing.T) {
	m := new(mockCompleter)
	resp := "```json\n{\"targets\":[" +
		groupJSON("Mid-size Manufacturers", "manufacturers in Detroit", " manufacturers  in Detroit ", "manufacturers in Toledo") + "," +
		groupJSON("Auto Suppliers", "auto parts suppliers in Dayton", "manufacturers in Toledo") +
		"]}\n```"
	m.On("Complete", mock.Anything, systemPrompt, mock.MatchedBy(func(user string) bool {
		return strings.Contains(user, `"Carbon accounting for factories"`) && strings.Contains(user, "2-10 distinct")
	})).Return(resp, nil)

	g := NewGenerator(m, Options{MinGroups: 2, MaxGroups: 10, MaxTermsPerGroup: 10})
	groups, err := g.Generate(context.Background(), "  Carbon accounting for factories ")

	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Mid-size Manufacturers", groups[0].GroupName)
	assert.Equal(t, []string{"manufacturers in Detroit", "manufacturers in Toledo"}, groups[0].SearchTerms)
	assert.Equal(t, []string{
		"manufacturers in Detroit", "manufacturers in Toledo", "auto parts suppliers in Dayton",
	}, Terms(groups))
	m.AssertExpectations(t)
}

func TestGenerate_CapsTermsAndGroups(t *testing.T) {
	terms := make([]string, 14)
	for i := range terms {
		terms[i] = fmt.Sprintf("term %d", i)
	}
	parts := make([]string, 12)
	for i := range parts {
		parts[i] = groupJSON(fmt.Sprintf("group %d", i), terms...)
	}

	m := new(mockCompleter)
	m.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"targets":[`+strings.Join(parts, ",")+`]}`, nil)

	groups, err := NewGenerator(m, DefaultOptions()).Generate(context.Background(), "product")
	require.NoError(t, err)
	assert.Len(t, groups, 10)
	for _, g := range groups {
		assert.Len(t, g.SearchTerms, 10)
		assert.Equal(t, "term 0", g.SearchTerms[0])
	}
}

func TestGenerate_BareArray(t *testing.T) {
	m := new(mockCompleter)
	m.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("Here is the plan:\n["+groupJSON("Only", "a in b")+"]", nil)

	groups, err := NewGenerator(m, Options{MinGroups: 1}).Generate(context.Background(), "product")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"a in b"}, groups[0].SearchTerms)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
		want string
	}{
		{"completer error", "", errors.New("boom"), "plan: complete"},
		{"not json", "sorry, I cannot help", nil, "plan: decode response"},
		{"empty targets", `{"targets":[]}`, nil, "plan: invalid response"},
		{"missing rationale", `{"targets":[{"group_name":"x","google_search_terms":["a"]}]}`, nil, "plan: invalid response"},
		{"blank term", `{"targets":[{"group_name":"x","rationale":"y","google_search_terms":[""]}]}`, nil, "plan: invalid response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(mockCompleter)
			m.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(tt.out, tt.err)

			_, err := NewGenerator(m, DefaultOptions()).Generate(context.Background(), "product")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGenerate_EmptyDescription(t *testing.T) {
	m := new(mockCompleter)
	_, err := NewGenerator(m, DefaultOptions()).Generate(context.Background(), "   ")
	assert.Error(t, err)
	m.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestNewGenerator_Defaults(t *testing.T) {
	g := NewGenerator(nil, Options{})
	assert.Equal(t, DefaultOptions(), g.opts)

	g = NewGenerator(nil, Options{MinGroups: 12})
	assert.Equal(t, 12, g.opts.MaxGroups)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n[1,2]\n```", `[1,2]`},
		{"Sure! {\"a\":1} Hope this helps.", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanJSON(tt.in))
	}
}

func TestTerms_Empty(t *testing.T) {
	assert.Empty(t, Terms(nil))
}
