package listing

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/satulemari/partner-service/internal/llm"
	"github.com/satulemari/partner-service/internal/partner"
)

// ImageSlots is the number of photos a listing can carry. Slot 0 is the
// primary photo and the only one that triggers analysis.
const ImageSlots = 2

// Photo is an uploaded listing image.
type Photo struct {
	FileName string
	Image    llm.Image
}

// Draft is a partner's item listing being prepared for submission.
type Draft struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Name         string   `json:"name"`
	CategoryID   string   `json:"category_id"`
	CategoryName string   `json:"category_name,omitempty"`
	Condition    string   `json:"condition"`
	Size         string   `json:"size"`
	Color        string   `json:"color"`
	Quantity     int      `json:"total_quantity"`
	Price        float64  `json:"price,omitempty"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags,omitempty"`
	Material     string   `json:"material,omitempty"`
	Occasion     string   `json:"occasion,omitempty"`

	Images [ImageSlots]*Photo `json:"-"`
}

// NewDraft returns an empty draft with the default quantity.
func NewDraft(id string) Draft {
	return Draft{ID: id, Quantity: 1}
}

// ValidationError is the first failed rule of Draft.Validate.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks the draft before submission. Rules run in form order and
// the first failure is returned.
func (d *Draft) Validate() error {
	switch {
	case d.Type != partner.TypeDonation && d.Type != partner.TypeRental:
		return &ValidationError{"type", "Jenis barang wajib dipilih."}
	case blank(d.Name):
		return &ValidationError{"name", "Nama barang wajib diisi."}
	case blank(d.CategoryID):
		return &ValidationError{"category_id", "Kategori wajib dipilih."}
	case blank(d.Condition):
		return &ValidationError{"condition", "Kondisi wajib dipilih."}
	case blank(d.Size):
		return &ValidationError{"size", "Ukuran (size) wajib diisi."}
	case blank(d.Color):
		return &ValidationError{"color", "Warna wajib diisi."}
	case d.Quantity <= 0:
		return &ValidationError{"total_quantity", "Jumlah harus lebih dari 0."}
	case d.Type == partner.TypeRental && d.Price <= 0:
		return &ValidationError{"price", "Harga sewa wajib diisi dan lebih dari 0."}
	case d.Images[0] == nil:
		return &ValidationError{"images", "Gambar 1 wajib diunggah."}
	case blank(d.Description):
		return &ValidationError{"description", "Deskripsi wajib diisi."}
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// NormalizeColor capitalizes the first letter and lower-cases the rest, the
// way manually typed colors are stored.
func NormalizeColor(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// Patch is a partial manual edit of a draft. Nil fields are left unchanged.
type Patch struct {
	Type        *string  `json:"type"`
	Name        *string  `json:"name"`
	CategoryID  *string  `json:"category_id"`
	Condition   *string  `json:"condition"`
	Size        *string  `json:"size"`
	Color       *string  `json:"color"`
	Quantity    *int     `json:"total_quantity"`
	Price       *float64 `json:"price"`
	Description *string  `json:"description"`
}

// ApplyPatch applies a manual edit. Categories are resolved against known so
// the draft keeps a display name; colors are normalized.
func (d *Draft) ApplyPatch(p Patch, known []Category) {
	if p.Type != nil {
		d.Type = *p.Type
	}
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.CategoryID != nil {
		d.CategoryID = *p.CategoryID
		d.CategoryName = ""
		for _, c := range known {
			if c.ID == d.CategoryID {
				d.CategoryName = c.Name
				break
			}
		}
	}
	if p.Condition != nil {
		d.Condition = *p.Condition
	}
	if p.Size != nil {
		d.Size = *p.Size
	}
	if p.Color != nil {
		d.Color = NormalizeColor(*p.Color)
	}
	if p.Quantity != nil {
		d.Quantity = *p.Quantity
	}
	if p.Price != nil {
		d.Price = *p.Price
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
}

// ItemInput converts the draft into the backend item form. Values are
// trimmed and price is dropped for donations.
func (d *Draft) ItemInput() partner.ItemInput {
	in := partner.ItemInput{
		Type:          d.Type,
		Name:          strings.TrimSpace(d.Name),
		CategoryID:    d.CategoryID,
		Condition:     d.Condition,
		Size:          strings.TrimSpace(d.Size),
		Color:         strings.TrimSpace(d.Color),
		TotalQuantity: d.Quantity,
		Description:   strings.TrimSpace(d.Description),
	}
	if d.Type == partner.TypeRental {
		in.Price = d.Price
	}
	for i, p := range d.Images {
		if p == nil {
			continue
		}
		in.Images = append(in.Images, partner.ImageFile{
			Name:        photoFileName(i, p),
			ContentType: p.Image.MIMEType,
			Data:        p.Image.Data,
		})
	}
	return in
}

func photoFileName(slot int, p *Photo) string {
	if p.FileName != "" {
		return p.FileName
	}
	ext := ".jpg"
	if m := mimetype.Lookup(p.Image.MIMEType); m != nil && m.Extension() != "" {
		ext = m.Extension()
	}
	return fmt.Sprintf("image-%d%s", slot+1, ext)
}

// clone returns a copy that shares no slices with d.
func (d Draft) clone() Draft {
	if d.Tags != nil {
		d.Tags = append([]string(nil), d.Tags...)
	}
	return d
}
