// ABOUTME: Shopping cart held in a signed and optionally encrypted cookie
// ABOUTME: CartCodec wraps gorilla/securecookie; Cart merges and removes product lines

package shop

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// CartCookieName is the cookie holding the encoded cart.
const CartCookieName = "storefront_cart"

// Cart limits.
const (
	MaxCartLines    = 50
	MaxLineQuantity = 99
	cartMaxAge      = 30 * 24 * time.Hour
)

// CartItem is one product line in the cart. Prices are looked up at read time.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Cart is the anonymous or signed-in shopper's basket.
type Cart struct {
	Items []CartItem `json:"items"`
}

// Quantity returns the quantity of a product in the cart.
func (c *Cart) Quantity(productID string) int {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

// Set replaces a line's quantity, appending the line if it is new.
// A quantity of zero or less removes the line.
func (c *Cart) Set(productID string, quantity int) {
	if quantity <= 0 {
		c.Remove(productID)
		return
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return
		}
	}
	c.Items = append(c.Items, CartItem{ProductID: productID, Quantity: quantity})
}

// Remove drops a product line. Reports whether it was present.
func (c *Cart) Remove(productID string) bool {
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.Items) == 0
}

// CartCodec reads and writes the cart cookie.
type CartCodec struct {
	sc     *securecookie.SecureCookie
	secure bool
}

// NewCartCodec creates a codec. hashKey authenticates the cookie; a
// non-empty blockKey also encrypts it.
func NewCartCodec(hashKey, blockKey []byte, secure bool) *CartCodec {
	if len(blockKey) == 0 {
		blockKey = nil
	}
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(cartMaxAge.Seconds()))
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &CartCodec{sc: sc, secure: secure}
}

// Load decodes the request's cart. A missing, expired or tampered cookie
// yields an empty cart.
func (c *CartCodec) Load(r *http.Request) *Cart {
	cart := &Cart{}
	cookie, err := r.Cookie(CartCookieName)
	if err != nil || cookie.Value == "" {
		return cart
	}
	if err := c.sc.Decode(CartCookieName, cookie.Value, cart); err != nil {
		return &Cart{}
	}
	return cart
}

// Save writes the cart cookie. An empty cart clears it.
func (c *CartCodec) Save(w http.ResponseWriter, cart *Cart) error {
	if cart.Empty() {
		c.Clear(w)
		return nil
	}
	encoded, err := c.sc.Encode(CartCookieName, cart)
	if err != nil {
		return err
	}
	http.SetCookie(w, c.cookie(encoded, int(cartMaxAge.Seconds())))
	return nil
}

// Clear expires the cart cookie.
func (c *CartCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", -1))
}

func (c *CartCodec) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CartCookieName,
		Value:    value,
		Path:     "/",
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}
