// README: Handlers for order lifecycle, delta sync, and availability.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mandado/internal/http/middleware"
	"mandado/internal/metrics"
	"mandado/internal/modules/courier"
	"mandado/internal/modules/order"
	"mandado/internal/types"
)

type extraReq struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

type itemReq struct {
	Name       string     `json:"name" binding:"required"`
	Quantity   int64      `json:"quantity" binding:"required"`
	UnitPrice  int64      `json:"unit_price"`
	Extras     []extraReq `json:"extras"`
	Variations []extraReq `json:"variations"`
}

type createOrderReq struct {
	BusinessID string    `json:"business_id" binding:"required"`
	Shipping   int64     `json:"shipping"`
	Notes      string    `json:"notes"`
	Items      []itemReq `json:"items" binding:"required"`
}

func (s *Server) CreateOrder(c *gin.Context) {
	actorID, role := middleware.Actor(c)
	if role != types.RoleCustomer {
		c.JSON(http.StatusForbidden, gin.H{"error": "only customers place orders"})
		return
	}

	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	items := make([]order.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, order.ItemInput{
			Name:       it.Name,
			Quantity:   it.Quantity,
			UnitPrice:  types.Money{Amount: it.UnitPrice, Currency: types.DefaultCurrency},
			Extras:     toExtras(it.Extras),
			Variations: toExtras(it.Variations),
		})
	}

	o, err := s.order.Create(c.Request.Context(), order.CreateCommand{
		CustomerID: actorID,
		BusinessID: types.ID(req.BusinessID),
		Shipping:   types.Money{Amount: req.Shipping, Currency: types.DefaultCurrency},
		Notes:      req.Notes,
		Items:      items,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, renderOrder(o))
}

func (s *Server) GetOrder(c *gin.Context) {
	actorID, role := middleware.Actor(c)
	o, err := s.order.Get(c.Request.Context(), types.ID(c.Param("id")), actorID, role)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	c.JSON(http.StatusOK, renderOrder(o))
}

type transitionReq struct {
	TargetStatus string `json:"target_status" binding:"required"`
	Note         string `json:"note"`
}

func (s *Server) Transition(c *gin.Context) {
	actorID, role := middleware.Actor(c)

	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	o, err := s.order.Transition(c.Request.Context(), order.TransitionCommand{
		OrderID:      types.ID(c.Param("id")),
		ActorRole:    role,
		ActorID:      actorID,
		TargetStatus: order.Status(req.TargetStatus),
		Note:         req.Note,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	metrics.Transitions.WithLabelValues(string(o.Status), string(role)).Inc()
	c.JSON(http.StatusOK, renderOrder(o))
}

func (s *Server) AcceptOffer(c *gin.Context) {
	actorID, role := middleware.Actor(c)
	if role != types.RoleCourier {
		c.JSON(http.StatusForbidden, gin.H{"error": "only couriers accept offers"})
		return
	}

	o, err := s.order.Accept(c.Request.Context(), order.AcceptCommand{
		OrderID:   types.ID(c.Param("id")),
		CourierID: actorID,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	metrics.Transitions.WithLabelValues(string(o.Status), string(role)).Inc()
	c.JSON(http.StatusOK, renderOrder(o))
}

func (s *Server) Delta(c *gin.Context) {
	actorID, role := middleware.Actor(c)

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		since = t
	}
	syncedAt := time.Now().UTC()

	orders, err := s.sync.Delta(c.Request.Context(), actorID, role, since)
	if err != nil {
		// a failed sync leaves the client's previous snapshot in place; it
		// retries on the next timer tick
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sync failed"})
		return
	}
	out := make([]gin.H, 0, len(orders))
	for _, o := range orders {
		out = append(out, renderOrder(o))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out, "synced_at": syncedAt})
}

type availabilityReq struct {
	Available *bool `json:"available" binding:"required"`
}

func (s *Server) SetAvailability(c *gin.Context) {
	actorID, role := middleware.Actor(c)
	if role != types.RoleCourier {
		c.JSON(http.StatusForbidden, gin.H{"error": "only couriers toggle availability"})
		return
	}

	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if err := s.courier.SetAvailability(c.Request.Context(), actorID, *req.Available); err != nil {
		if errors.Is(err, courier.ErrBlocked) {
			c.JSON(http.StatusConflict, gin.H{"error": "finish your active delivery first"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": *req.Available})
}

func (s *Server) GetAvailability(c *gin.Context) {
	actorID, role := middleware.Actor(c)
	if role != types.RoleCourier {
		c.JSON(http.StatusForbidden, gin.H{"error": "only couriers have availability"})
		return
	}

	available, last, err := s.courier.Availability(c.Request.Context(), actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	out := gin.H{"available": available}
	if !last.IsZero() {
		out["last_available_at"] = last
	}
	c.JSON(http.StatusOK, out)
}

type deviceTokenReq struct {
	Token string `json:"token" binding:"required"`
}

// RegisterDeviceToken stores the caller's current push token. Clients call it
// on login and whenever FCM rotates the token.
func (s *Server) RegisterDeviceToken(c *gin.Context) {
	actorID, _ := middleware.Actor(c)

	var req deviceTokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if err := s.tokens.Register(c.Request.Context(), actorID, req.Token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"registered": true})
}

type businessOpenReq struct {
	Open *bool `json:"open" binding:"required"`
}

func (s *Server) SetBusinessOpen(c *gin.Context) {
	actorID, role := middleware.Actor(c)
	if role != types.RoleBusiness {
		c.JSON(http.StatusForbidden, gin.H{"error": "only businesses toggle opening"})
		return
	}

	var req businessOpenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	if err := s.courier.SetBusinessOpen(c.Request.Context(), actorID, *req.Open); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"open": *req.Open})
}

func toExtras(in []extraReq) []order.Extra {
	out := make([]order.Extra, 0, len(in))
	for _, e := range in {
		out = append(out, order.Extra{
			Name:  e.Name,
			Price: types.Money{Amount: e.Price, Currency: types.DefaultCurrency},
		})
	}
	return out
}

func renderOrder(o *order.Order) gin.H {
	items := make([]gin.H, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, gin.H{
			"id":          it.ID,
			"name":        it.Name,
			"quantity":    it.Quantity,
			"unit_price":  it.UnitPrice.Amount,
			"total_price": it.TotalPrice.Amount,
			"extras":      renderExtras(it.Extras),
			"variations":  renderExtras(it.Variations),
		})
	}
	out := gin.H{
		"id":          o.ID,
		"customer_id": o.CustomerID,
		"business_id": o.BusinessID,
		"status":      o.Status,
		"items":       items,
		"subtotal":    o.Subtotal.Amount,
		"shipping":    o.Shipping.Amount,
		"total":       o.Total.Amount,
		"currency":    o.Total.Currency,
		"notes":       o.Notes,
		"created_at":  o.CreatedAt,
		"updated_at":  o.UpdatedAt,
	}
	if o.CourierID != nil {
		out["courier_id"] = *o.CourierID
	}
	addTime(out, "ready_for_pickup_at", o.ReadyForPickupAt)
	addTime(out, "picked_up_at", o.PickedUpAt)
	addTime(out, "on_the_way_at", o.OnTheWayAt)
	if o.CancelReason != nil {
		out["cancel_reason"] = *o.CancelReason
	}
	return out
}

func renderExtras(in []order.Extra) []gin.H {
	out := make([]gin.H, 0, len(in))
	for _, e := range in {
		out = append(out, gin.H{"name": e.Name, "price": e.Price.Amount})
	}
	return out
}

func addTime(h gin.H, key string, t *time.Time) {
	if t != nil {
		h[key] = *t
	}
}

func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, order.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, order.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, order.ErrMissingReason):
		reject(c, http.StatusBadRequest, err, "missing_reason")
	case errors.Is(err, order.ErrAlreadyTerminal):
		reject(c, http.StatusConflict, err, "already_terminal")
	case errors.Is(err, order.ErrInvalidTransition):
		reject(c, http.StatusConflict, err, "invalid_transition")
	case errors.Is(err, order.ErrCourierUnavailable):
		reject(c, http.StatusConflict, err, "courier_race_lost")
	case errors.Is(err, order.ErrConflict):
		reject(c, http.StatusConflict, err, "concurrent_modification")
	case errors.Is(err, order.ErrBusinessClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func reject(c *gin.Context, status int, err error, reason string) {
	metrics.TransitionRejections.WithLabelValues(reason).Inc()
	c.JSON(status, gin.H{"error": err.Error()})
}
