package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tazhate/pillbot/internal/domain"
)

func (s *Server) toResponse(r domain.Reminder) ReminderResponse {
	resp := ReminderResponse{
		ID:      r.ID,
		Name:    r.Name,
		Enabled: r.Enabled,
		Summary: r.Describe(),
		RRule:   s.svc.RRule(r),
		Halt:    haltResponse(r),
		Start:   r.Start,
	}
	if r.Pattern != nil {
		resp.Kind = string(r.Pattern.Kind())
	}
	if next := s.svc.UpcomingFor(r, 1); len(next) > 0 {
		resp.NextRun = &next[0]
	}
	return resp
}

func (s *Server) listReminders(c *fiber.Ctx) error {
	reminders := s.svc.List()
	out := make([]ReminderResponse, 0, len(reminders))
	for _, r := range reminders {
		out = append(out, s.toResponse(r))
	}
	return ok(c, fiber.StatusOK, out)
}

func (s *Server) getReminder(c *fiber.Ctx) error {
	r, err := s.svc.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, s.toResponse(r))
}

func (s *Server) parseRequest(c *fiber.Ctx) (domain.Draft, error) {
	var req ReminderRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.Draft{}, fiber.NewError(fiber.StatusBadRequest, "invalid JSON: "+err.Error())
	}
	if err := s.validate.Struct(req); err != nil {
		return domain.Draft{}, err
	}
	return req.toDraft(s.cfg.Location)
}

func (s *Server) createReminder(c *fiber.Ctx) error {
	draft, err := s.parseRequest(c)
	if err != nil {
		return err
	}
	r, err := s.svc.Create(c.UserContext(), draft)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusCreated, s.toResponse(r))
}

func (s *Server) updateReminder(c *fiber.Ctx) error {
	draft, err := s.parseRequest(c)
	if err != nil {
		return err
	}
	r, err := s.svc.Update(c.UserContext(), c.Params("id"), draft)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, s.toResponse(r))
}

func (s *Server) deleteReminder(c *fiber.Ctx) error {
	if err := s.svc.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, nil)
}

func (s *Server) setEnabled(c *fiber.Ctx) error {
	var req EnabledRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON: "+err.Error())
	}
	if err := s.validate.Struct(req); err != nil {
		return err
	}
	r, err := s.svc.SetEnabled(c.UserContext(), c.Params("id"), *req.Enabled)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, s.toResponse(r))
}

// getDraft returns the editable form with every weekday and day-of-month toggle
func (s *Server) getDraft(c *fiber.Ctx) error {
	r, err := s.svc.Get(c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, domain.ToDraft(r))
}

func (s *Server) putDraft(c *fiber.Ctx) error {
	var draft domain.Draft
	if err := c.BodyParser(&draft); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid JSON: "+err.Error())
	}
	r, err := s.svc.Update(c.UserContext(), c.Params("id"), draft)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, s.toResponse(r))
}

func (s *Server) newDraft(c *fiber.Ctx) error {
	return ok(c, fiber.StatusOK, s.svc.NewDraft())
}

func (s *Server) upcoming(c *fiber.Ctx) error {
	count := c.QueryInt("count", 10)
	if count < 1 || count > maxUpcoming {
		return fiber.NewError(fiber.StatusBadRequest, "count must be between 1 and 500")
	}
	times, err := s.svc.Upcoming(c.Params("id"), count)
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, times)
}

func (s *Server) schedule(c *fiber.Ctx) error {
	entries := s.svc.Preview(c.QueryInt("limit", 0))
	out := make([]OccurrenceResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, OccurrenceResponse{At: e.At, ReminderID: e.Reminder.ID, Name: e.Reminder.Name})
	}
	return ok(c, fiber.StatusOK, out)
}

func (s *Server) pending(c *fiber.Ctx) error {
	triggers, err := s.svc.Pending(c.UserContext())
	if err != nil {
		return err
	}
	out := make([]TriggerResponse, 0, len(triggers))
	for _, t := range triggers {
		out = append(out, TriggerResponse{ID: t.ID, Title: t.Title, Body: t.Body, FireAt: t.FireAt})
	}
	return ok(c, fiber.StatusOK, out)
}

func (s *Server) reset(c *fiber.Ctx) error {
	n, err := s.svc.Reset(c.UserContext(), time.Now())
	if err != nil {
		return err
	}
	return ok(c, fiber.StatusOK, fiber.Map{"scheduled": n})
}
