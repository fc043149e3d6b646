package orchestrator

import (
	"net/url"
	"strconv"

	"github.com/94faddy/dz-wrokshop/internal/models"
)

// ParseWorkshopURL extracts the numeric workshop item id from a Steam
// Workshop item URL, rejecting anything that is not recognizably one
// (§4.1 "Ingest Workshop URL", edge case E1/E2).
func ParseWorkshopURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", models.WrapAppError(models.ErrInvalidUrl, "malformed url", err)
	}
	if u.Host != "steamcommunity.com" || u.Path != "/sharedfiles/filedetails/" {
		return "", models.NewAppError(models.ErrInvalidUrl, "not a workshop item url")
	}
	id := u.Query().Get("id")
	if id == "" {
		return "", models.NewAppError(models.ErrInvalidUrl, "missing id query parameter")
	}
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return "", models.NewAppError(models.ErrInvalidUrl, "id is not numeric")
	}
	return id, nil
}
