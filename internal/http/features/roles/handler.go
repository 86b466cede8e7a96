package roles

import (
	"net/http"

	"github.com/danraniery/sgm/internal/httputil"
	"github.com/danraniery/sgm/pkg/domain"
)

// List returns the role catalog sorted by name.
// GET /api/roles
func List(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, domain.Roles())
}
