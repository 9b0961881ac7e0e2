/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

ERROR SHAPE:
  Every rejected operation returns a machine-readable "kind" plus a
  human-readable message, so callers can branch without string matching.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rules.go: RuleSetJSON type reused for rule configuration
*/
package api

import (
	"time"

	"github.com/warp/commission-engine/commission"
)

// =============================================================================
// COMMISSION TYPES
// =============================================================================

// CommissionDTO represents a commission record in API responses.
type CommissionDTO struct {
	ID               string `json:"id"`
	RepresentativeID string `json:"representative_id"`
	Amount           string `json:"amount"`
	Tier             int    `json:"tier"`
	PeriodStart      string `json:"period_start"`
	PeriodEnd        string `json:"period_end"`
	Status           string `json:"status"`
	PaidDate         string `json:"paid_date,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
}

func toCommissionDTO(c commission.Commission) CommissionDTO {
	dto := CommissionDTO{
		ID:               string(c.ID),
		RepresentativeID: string(c.RepresentativeID),
		Amount:           c.Amount.String(),
		Tier:             c.Tier,
		PeriodStart:      c.Period.Start.Format("2006-01-02"),
		PeriodEnd:        c.Period.End.Format("2006-01-02"),
		Status:           string(c.Status),
	}
	if c.PaidDate != nil {
		dto.PaidDate = c.PaidDate.Format(time.RFC3339)
	}
	if !c.CreatedAt.IsZero() {
		dto.CreatedAt = c.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// GENERATION TYPES
// =============================================================================

// GenerateRequest triggers a batch run for a period.
type GenerateRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// SkippedDTO is one "nothing to do" entry in a generation report.
type SkippedDTO struct {
	RepresentativeID string `json:"representative_id"`
	Reason           string `json:"reason"`
}

// FailedDTO is one per-representative failure in a generation report.
type FailedDTO struct {
	RepresentativeID string `json:"representative_id"`
	Cause            string `json:"cause"`
}

// GenerationReportDTO enumerates the outcome of one batch run.
type GenerationReportDTO struct {
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	Created     []CommissionDTO `json:"created"`
	Skipped     []SkippedDTO    `json:"skipped"`
	Failed      []FailedDTO     `json:"failed"`
}

func toReportDTO(r *commission.GenerationReport) GenerationReportDTO {
	dto := GenerationReportDTO{
		PeriodStart: r.Period.Start.Format("2006-01-02"),
		PeriodEnd:   r.Period.End.Format("2006-01-02"),
		Created:     []CommissionDTO{},
		Skipped:     []SkippedDTO{},
		Failed:      []FailedDTO{},
	}
	for _, c := range r.Created {
		dto.Created = append(dto.Created, toCommissionDTO(c))
	}
	for _, s := range r.Skipped {
		dto.Skipped = append(dto.Skipped, SkippedDTO{
			RepresentativeID: string(s.RepresentativeID),
			Reason:           string(s.Reason),
		})
	}
	for _, f := range r.Failed {
		dto.Failed = append(dto.Failed, FailedDTO{
			RepresentativeID: string(f.RepresentativeID),
			Cause:            f.Cause,
		})
	}
	return dto
}

// =============================================================================
// COLLABORATOR TYPES (admin-maintained inputs)
// =============================================================================

// RepresentativeDTO represents a representative in API responses.
type RepresentativeDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// SaveRepresentativeRequest creates or updates a representative.
type SaveRepresentativeRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// SaveActivityRequest records activity facts for a representative/period.
type SaveActivityRequest struct {
	RepresentativeID string  `json:"representative_id"`
	PeriodStart      string  `json:"period_start"`
	PeriodEnd        string  `json:"period_end"`
	ContractsSigned  int     `json:"contracts_signed"`
	TotalRevenue     float64 `json:"total_revenue"`
}

// =============================================================================
// ERROR RESPONSE
// =============================================================================

// ErrorResponse is the uniform error envelope: a machine-readable kind
// plus a human-readable message.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
