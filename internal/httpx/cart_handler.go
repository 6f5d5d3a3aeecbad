package httpx

import "net/http"

// quantity caps mirror orders.MaxLineQuantity
type addCartItemReq struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	Quantity  int   `json:"quantity" validate:"gt=0,max=10000"`
}

type updateCartItemReq struct {
	Quantity int `json:"quantity" validate:"max=10000"`
}

type cartResp struct {
	Items []cartItemView `json:"items"`
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	items, err := s.Carts.List(r.Context(), actor(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResp{Items: viewCartItems(items)})
}

func (s *Server) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	it, err := s.Carts.AddItem(r.Context(), actor(r).UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewCartItem(it))
}

// updateCartItem removes the line when quantity drops to zero or below.
func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateCartItemReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	it, removed, err := s.Carts.UpdateQty(r.Context(), actor(r).UserID, id, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if removed {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, viewCartItem(it))
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Carts.RemoveItem(r.Context(), actor(r).UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := s.Carts.Clear(r.Context(), actor(r).UserID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cartCountResp struct {
	Lines int `json:"lines"`
	Units int `json:"units"`
}

func (s *Server) cartCount(w http.ResponseWriter, r *http.Request) {
	c, err := s.Carts.Count(r.Context(), actor(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartCountResp{Lines: c.Lines, Units: c.Units})
}
