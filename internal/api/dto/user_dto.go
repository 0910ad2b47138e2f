package dto

import "github.com/spec-kit/complaint-service/internal/domain"

// SyncResponse reports the role resolved for the caller.
type SyncResponse struct {
	Role domain.Role `json:"role"`
}
