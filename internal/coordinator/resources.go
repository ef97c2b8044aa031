package coordinator

import (
	"errors"
	"fmt"

	"github.com/talgya/colony-ai/internal/sharedctx"
)

const requester = "service_coordinator"

// AcquireResource records a request and asks the acquisition service to fill
// it. A failed acquisition leaves the request pending for a later pass.
func (c *Coordinator) AcquireResource(material string, qty float64, priority string) error {
	req, err := c.ctx.RequestResource(material, qty, priority, requester)
	c.note(err)
	c.note(c.ctx.NotifyListeners(sharedctx.EventResourceAcquisitionStarted, map[string]any{
		"request_id": req.ID, "material": material, "quantity": qty,
	}))
	if err := c.fill(req); err != nil {
		c.log.Warn("acquisition failed", "material", material, "qty", qty, "error", err)
		c.note(c.ctx.NotifyListeners(sharedctx.EventResourceAcquisitionFailed, map[string]any{
			"request_id": req.ID, "material": material, "error": err.Error(),
		}))
		return err
	}
	return nil
}

// fill acquires and fulfills one pending request.
func (c *Coordinator) fill(req sharedctx.ResourceRequest) error {
	if c.deps.Acquirer == nil {
		return fmt.Errorf("acquire %s: %w", req.Material, ErrNoAcquirer)
	}
	source, err := c.deps.Acquirer.Acquire(req.Material, req.Quantity)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", req.Material, err)
	}
	return c.fulfill(req, source)
}

func (c *Coordinator) fulfill(req sharedctx.ResourceRequest, source string) error {
	if _, err := c.ctx.FulfillResourceRequest(req.ID, source); err != nil {
		var le *sharedctx.ListenerError
		if !errors.As(err, &le) {
			return err
		}
		c.note(err)
	}
	c.note(c.ctx.NotifyListeners(sharedctx.EventResourceAcquisitionCompleted, map[string]any{
		"request_id": req.ID, "material": req.Material, "quantity": req.Quantity, "source": source,
	}))
	c.log.Info("resource acquired", "material", req.Material, "qty", req.Quantity, "source", source)
	return nil
}

// ResourceAvailable returns the settlement's local stock of a material.
// Anything not held locally reads as zero; the acquirer decides where else
// it can come from.
func (c *Coordinator) ResourceAvailable(material string) float64 {
	if c.deps.Inventory == nil {
		return 0
	}
	return c.deps.Inventory.CurrentStock(material)
}

// CheckResourceAvailability reports whether qty of material is held locally.
func (c *Coordinator) CheckResourceAvailability(material string, qty float64) bool {
	return c.ResourceAvailable(material) >= qty
}

// ProcessResourceRequests works through pending requests. Requests already
// covered by local stock are fulfilled from inventory; the rest are sent to
// the acquisition service. It returns how many were fulfilled.
func (c *Coordinator) ProcessResourceRequests() int {
	fulfilled := 0
	for _, req := range c.ctx.PendingRequests() {
		var err error
		if c.CheckResourceAvailability(req.Material, req.Quantity) {
			err = c.fulfill(req, "local_inventory")
		} else {
			err = c.fill(req)
		}
		if err != nil {
			c.log.Debug("request still pending", "request", req.ID, "material", req.Material, "error", err)
			continue
		}
		fulfilled++
	}
	return fulfilled
}

// UpdateEconomicMetrics publishes queue and ledger readings plus any extra
// values into the shared economic state.
func (c *Coordinator) UpdateEconomicMetrics(extra map[string]any) {
	values := map[string]any{
		"mission_queue_length": c.ctx.MissionQueueLen(),
		"pending_requests":     len(c.ctx.PendingRequests()),
		"active_missions":      len(c.ctx.ActiveMissions()),
	}
	if c.deps.Accounts != nil {
		values["balance"] = c.deps.Accounts.Balance()
	}
	for k, v := range extra {
		values[k] = v
	}
	c.note(c.ctx.UpdateEconomicState(values))
}
