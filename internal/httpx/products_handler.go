package httpx

import (
	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/catalog"
	"github.com/shopspring/decimal"
	"net/http"
)

type createProductReq struct {
	Name  string          `json:"name" validate:"required,max=200"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock" validate:"gte=0,max=1000000"`
}

type updateProductReq struct {
	Name   *string          `json:"name" validate:"omitempty,max=200"`
	Price  *decimal.Decimal `json:"price"`
	Active *bool            `json:"active"`
}

type restockReq struct {
	Quantity int `json:"quantity" validate:"gt=0,max=1000000"`
}

// listProducts shows inactive products only to sellers and admins that ask
// for them with ?include_inactive=true.
func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	includeInactive := false
	if c := auth.ClaimsFrom(r.Context()); c != nil && c.Role != auth.RoleBuyer {
		includeInactive = r.URL.Query().Get("include_inactive") == "true"
	}
	ps, err := s.Catalog.List(r.Context(), includeInactive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]productView, 0, len(ps))
	for _, p := range ps {
		out = append(out, viewProduct(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.Catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewProduct(p))
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.Catalog.Create(r.Context(), actor(r), catalog.NewProduct{Name: req.Name, Price: req.Price, Stock: req.Stock})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewProduct(p))
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateProductReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.Catalog.Update(r.Context(), actor(r), id, catalog.Patch{Name: req.Name, Price: req.Price, Active: req.Active})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewProduct(p))
}

func (s *Server) restockProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req restockReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.Catalog.Restock(r.Context(), actor(r), id, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewProduct(p))
}
