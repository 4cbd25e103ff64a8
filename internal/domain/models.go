package domain

type User struct {
	ID        string `db:"id" json:"id"`
	Username  string `db:"username" json:"username"`
	Hash      string `db:"password_hash" json:"-"`
	CreatedAt string `db:"created_at" json:"createdAt"`
}

type Product struct {
	ID           string  `db:"id" json:"id" yaml:"id"`
	Name         string  `db:"name" json:"name" yaml:"name"`
	Description  string  `db:"description" json:"description" yaml:"description"`
	Price        float64 `db:"price" json:"price" yaml:"price"`
	Category     string  `db:"category" json:"category" yaml:"category"`
	Manufacturer string  `db:"manufacturer" json:"manufacturer" yaml:"manufacturer"`
	Stock        int     `db:"stock" json:"stock" yaml:"stock"`
	Prescription bool    `db:"prescription" json:"prescription" yaml:"prescription"`
}

// ProductPatch is a partial product update; nil fields are left unchanged.
type ProductPatch struct {
	Name         *string  `json:"name" validate:"omitempty,min=1,max=200"`
	Description  *string  `json:"description" validate:"omitempty,max=2000"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	Category     *string  `json:"category" validate:"omitempty,min=1,max=64"`
	Manufacturer *string  `json:"manufacturer" validate:"omitempty,max=200"`
	Stock        *int     `json:"stock" validate:"omitempty,gte=0"`
	Prescription *bool    `json:"prescription"`
}

func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.Category == nil &&
		p.Manufacturer == nil && p.Stock == nil && p.Prescription == nil
}

// CartOwner identifies whose cart is addressed. An authenticated user
// takes precedence over the anonymous session.
type CartOwner struct {
	SessionID string
	UserID    string
}

func (o CartOwner) Key() string {
	if o.UserID != "" {
		return "user:" + o.UserID
	}
	if o.SessionID != "" {
		return "session:" + o.SessionID
	}
	return ""
}

type CartLine struct {
	ProductID    string  `db:"product_id" json:"productId"`
	Name         string  `db:"name" json:"name"`
	Price        float64 `db:"price" json:"price"`
	Prescription bool    `db:"prescription" json:"prescription"`
	Quantity     int     `db:"qty" json:"quantity"`
	Subtotal     float64 `db:"-" json:"subtotal"`
}

type Cart struct {
	ID        string     `json:"id"`
	SessionID string     `json:"sessionId,omitempty"`
	UserID    string     `json:"userId,omitempty"`
	Items     []CartLine `json:"items"`
	ItemCount int        `json:"itemCount"`
	Total     float64    `json:"total"`
}
