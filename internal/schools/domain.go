package schools

import "time"

// School is the root of tenant isolation: every other entity carries a
// school_id referencing exactly one of these rows.
type School struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
