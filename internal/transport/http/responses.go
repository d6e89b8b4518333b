package httptransport

import (
	"namespaces/internal/registry/models"
	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
)

type NamespaceListResponse struct {
	Namespaces []*models.Namespace `json:"namespaces"`
	Total      int                 `json:"total"`
}

type EntryListResponse struct {
	Entries []*models.Entry `json:"entries"`
	Total   int             `json:"total"`
}

type ClaimRequestListResponse struct {
	Requests []*models.ClaimRequest `json:"requests"`
	Total    int                    `json:"total"`
}

type ResolveResponse struct {
	Identity    domain.Identity `json:"identity"`
	DisplayName string          `json:"display_name"`
}

func errInvalidQuery(param string) error {
	return dErrors.Newf(dErrors.CodeBadRequest, "invalid query parameter %q", param)
}
