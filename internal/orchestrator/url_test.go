package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/94faddy/dz-wrokshop/internal/models"
)

func TestParseWorkshopURL(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		wantID   string
		wantKind models.ErrorKind
	}{
		{
			name:   "valid item url",
			raw:    "https://steamcommunity.com/sharedfiles/filedetails/?id=123456789",
			wantID: "123456789",
		},
		{
			name:     "wrong host",
			raw:      "https://example.com/sharedfiles/filedetails/?id=1",
			wantKind: models.ErrInvalidUrl,
		},
		{
			name:     "wrong path",
			raw:      "https://steamcommunity.com/profiles/12345",
			wantKind: models.ErrInvalidUrl,
		},
		{
			name:     "missing id",
			raw:      "https://steamcommunity.com/sharedfiles/filedetails/",
			wantKind: models.ErrInvalidUrl,
		},
		{
			name:     "non-numeric id",
			raw:      "https://steamcommunity.com/sharedfiles/filedetails/?id=abc",
			wantKind: models.ErrInvalidUrl,
		},
		{
			name:     "unparseable url",
			raw:      "://not-a-url",
			wantKind: models.ErrInvalidUrl,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, err := ParseWorkshopURL(tc.raw)
			if tc.wantKind != "" {
				assert.Error(t, err)
				assert.Equal(t, tc.wantKind, models.KindOf(err))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.wantID, id)
		})
	}
}
