package persist

import (
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
)

// EncodeCart renders lines as {"items":[{"product":{...},"quantity":N}]}.
func EncodeCart(lines []cart.Line) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range lines {
		e.ObjStart()
		e.FieldStart("product")
		encodeProduct(&e, l.Product)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

// DecodeCart parses a cart slot document. A product id listed twice makes
// the document invalid.
func DecodeCart(data []byte) ([]cart.Line, error) {
	lines := []cart.Line{}
	seen := map[string]struct{}{}
	err := decodeItems(data, func(d *jx.Decoder) error {
		var l cart.Line
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "product":
				p, err := decodeProduct(d)
				if err != nil {
					return errors.Wrap(err, "product")
				}
				l.Product = p
			case "quantity":
				q, err := d.Int()
				if err != nil {
					return errors.Wrap(err, "quantity")
				}
				l.Quantity = q
			default:
				return d.Skip()
			}
			return nil
		}); err != nil {
			return err
		}
		if l.Product.ID == "" {
			return errors.New("line without product id")
		}
		if l.Quantity < 1 {
			return errors.Errorf("line %s has quantity %d", l.Product.ID, l.Quantity)
		}
		if _, dup := seen[l.Product.ID]; dup {
			return errors.Errorf("duplicate line %s", l.Product.ID)
		}
		seen[l.Product.ID] = struct{}{}
		lines = append(lines, l)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return lines, nil
}

// EncodeWishlist renders items as {"items":[{...product...}]}.
func EncodeWishlist(items []product.Product) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, p := range items {
		encodeProduct(&e, p)
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

// DecodeWishlist parses a wishlist slot document. A product id listed twice
// makes the document invalid.
func DecodeWishlist(data []byte) ([]product.Product, error) {
	items := []product.Product{}
	seen := map[string]struct{}{}
	err := decodeItems(data, func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return err
		}
		if p.ID == "" {
			return errors.New("entry without product id")
		}
		if _, dup := seen[p.ID]; dup {
			return errors.Errorf("duplicate entry %s", p.ID)
		}
		seen[p.ID] = struct{}{}
		items = append(items, p)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode wishlist")
	}
	return items, nil
}

func decodeItems(data []byte, item func(d *jx.Decoder) error) error {
	if !jx.Valid(data) {
		return errors.New("not a single JSON document")
	}
	d := jx.DecodeBytes(data)
	seen := false
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "items" {
			return d.Skip()
		}
		seen = true
		if d.Next() == jx.Null {
			return d.Null()
		}
		return d.Arr(item)
	})
	if err != nil {
		return err
	}
	if !seen {
		return errors.New(`missing "items"`)
	}
	return nil
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("slug")
	e.Str(p.Slug)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	e.Num(jx.Num(p.Price.String()))
	e.FieldStart("images")
	e.ArrStart()
	for _, img := range p.Images {
		e.Str(img)
	}
	e.ArrEnd()
	e.FieldStart("category_id")
	e.Str(p.CategoryID)
	if len(p.Specifications) > 0 && jx.Valid(p.Specifications) {
		e.FieldStart("specifications")
		e.Raw(p.Specifications)
	}
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("featured")
	e.Bool(p.Featured)
	e.FieldStart("is_trending")
	e.Bool(p.Trending)
	e.FieldStart("featured_home")
	e.Bool(p.FeaturedHome)
	e.FieldStart("is_hero_showcase")
	e.Bool(p.HeroShowcase)
	if p.MetaTitle != "" {
		e.FieldStart("meta_title")
		e.Str(p.MetaTitle)
	}
	if p.MetaDescription != "" {
		e.FieldStart("meta_description")
		e.Str(p.MetaDescription)
	}
	if p.Keywords != "" {
		e.FieldStart("keywords")
		e.Str(p.Keywords)
	}
	e.FieldStart("created_at")
	e.Str(p.CreatedAt.UTC().Format(time.RFC3339Nano))
	e.FieldStart("updated_at")
	e.Str(p.UpdatedAt.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "slug":
			p.Slug, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
		case "images":
			p.Images = []string{}
			err = d.Arr(func(d *jx.Decoder) error {
				s, err := d.Str()
				if err != nil {
					return err
				}
				p.Images = append(p.Images, s)
				return nil
			})
		case "category_id":
			p.CategoryID, err = d.Str()
		case "specifications":
			var raw jx.Raw
			raw, err = d.Raw()
			p.Specifications = append(json.RawMessage(nil), raw...)
		case "stock":
			p.Stock, err = d.Int()
		case "featured":
			p.Featured, err = d.Bool()
		case "is_trending":
			p.Trending, err = d.Bool()
		case "featured_home":
			p.FeaturedHome, err = d.Bool()
		case "is_hero_showcase":
			p.HeroShowcase, err = d.Bool()
		case "meta_title":
			p.MetaTitle, err = d.Str()
		case "meta_description":
			p.MetaDescription, err = d.Str()
		case "keywords":
			p.Keywords, err = d.Str()
		case "created_at":
			p.CreatedAt, err = decodeTime(d)
		case "updated_at":
			p.UpdatedAt, err = decodeTime(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return p, err
}

// decodeDecimal accepts both JSON numbers and numeric strings.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var text string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		text = s
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		text = n.String()
	}
	return decimal.NewFromString(text)
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil || s == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}
