package partner

import "encoding/json"

// Item types as the backend names them.
const (
	TypeDonation = "donation"
	TypeRental   = "rental"
)

// Request statuses.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
)

// envelope is the response wrapper used by every backend endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CategoryNames returns the names of cats in order.
func CategoryNames(cats []Category) []string {
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return names
}

type Item struct {
	ID                string   `json:"id"`
	PartnerID         string   `json:"partner_id,omitempty"`
	Type              string   `json:"type"`
	Name              string   `json:"name"`
	CategoryID        string   `json:"category_id"`
	CategoryName      string   `json:"category_name,omitempty"`
	Condition         string   `json:"condition"`
	Size              string   `json:"size"`
	Color             string   `json:"color"`
	TotalQuantity     int      `json:"total_quantity"`
	AvailableQuantity int      `json:"available_quantity,omitempty"`
	Price             float64  `json:"price,omitempty"`
	Description       string   `json:"description"`
	Images            []string `json:"images,omitempty"`
	Status            string   `json:"status,omitempty"`
	CreatedAt         string   `json:"created_at,omitempty"`
	UpdatedAt         string   `json:"updated_at,omitempty"`
}

// ImageFile is an image uploaded with an item form.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ItemInput is the multipart form sent when creating or updating an item.
// Price is only sent for rentals.
type ItemInput struct {
	Type          string
	Name          string
	CategoryID    string
	Condition     string
	Size          string
	Color         string
	TotalQuantity int
	Description   string
	Price         float64
	Images        []ImageFile
}

// Request is a donation or rental request made by a user for a partner's item.
type Request struct {
	ID           string   `json:"id"`
	ItemID       string   `json:"item_id"`
	UserID       string   `json:"user_id"`
	PartnerID    string   `json:"partner_id"`
	Type         string   `json:"type"`
	Quantity     int      `json:"quantity"`
	Reason       string   `json:"reason"`
	ContactInfo  string   `json:"contact_info"`
	PickupDate   string   `json:"pickup_date,omitempty"`
	ReturnDate   string   `json:"return_date,omitempty"`
	Status       string   `json:"status"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
	ItemName     string   `json:"item_name"`
	ItemPrice    float64  `json:"item_price,omitempty"`
	ItemImages   []string `json:"item_images,omitempty"`
	CategoryName string   `json:"category_name"`
	UserName     string   `json:"user_name"`
	UserFullName string   `json:"user_full_name"`
	UserPhone    string   `json:"user_phone"`
	UserPhoto    *string  `json:"user_photo"`
}

type RequestFilter struct {
	Type   string
	Search string
}

type StatusUpdate struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

type User struct {
	ID                  string  `json:"id"`
	Email               string  `json:"email"`
	Username            string  `json:"username"`
	FullName            string  `json:"full_name"`
	Role                string  `json:"role"`
	Phone               string  `json:"phone"`
	Address             string  `json:"address"`
	City                string  `json:"city"`
	Latitude            float64 `json:"latitude"`
	Longitude           float64 `json:"longitude"`
	Photo               string  `json:"photo"`
	Description         string  `json:"description"`
	WeeklyDonationQuota int     `json:"weekly_donation_quota"`
	WeeklyDonationUsed  int     `json:"weekly_donation_used"`
	QuotaResetDate      string  `json:"quota_reset_date"`
	CreatedAt           string  `json:"created_at"`
	UpdatedAt           string  `json:"updated_at"`
}
