package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDirectoryURL(t *testing.T) {
	blocklist := []string{"yelp.com", "Facebook.com", "linkedin.com", ""}

	tests := []struct {
		url    string
		expect bool
	}{
		{"https://yelp.com/biz/test-corp", true},
		{"https://www.facebook.com/testcorp", true},
		{"https://uk.linkedin.com/company/test", true},
		{"https://testcorp.com", false},
		{"https://notyelp.com", false},
		{"::bad", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expect, isDirectoryURL(tt.url, blocklist))
		})
	}
}
