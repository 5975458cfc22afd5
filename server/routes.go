package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/meikuraledutech/procflow"
)

type handler struct {
	store    procflow.Store
	validate *validator.Validate
	loc      *time.Location
	now      func() time.Time
	quiet    bool
}

func newHandler(store procflow.Store, loc *time.Location) *handler {
	if loc == nil {
		loc = time.UTC
	}
	return &handler{
		store:    store,
		validate: newValidator(),
		loc:      loc,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// badRequest is returned for bodies and queries the server rejects.
type badRequest string

func (e badRequest) Error() string { return string(e) }

// ── Request bodies ────────────────────────────────────────────────────

type taskInput struct {
	ID   procflow.TaskID `json:"id"`
	Text string          `json:"text" validate:"required,notblank"`
	Due  string          `json:"due" validate:"omitempty,due_date"`
}

type createProcessRequest struct {
	Name          string      `json:"name" validate:"required,notblank,max=200"`
	Description   string      `json:"description"`
	Tasks         []taskInput `json:"tasks" validate:"unique_task_ids,dive"`
	DeadlineOrder string      `json:"deadlineOrder" validate:"omitempty,oneof=position topology"`
}

type updateProcessRequest struct {
	Name          *string `json:"name" validate:"omitempty,notblank,max=200"`
	Description   *string `json:"description"`
	DeadlineOrder *string `json:"deadlineOrder" validate:"omitempty,oneof=position topology"`
}

type nodeRequest struct {
	Kind     string            `json:"kind" validate:"required,oneof=start end step branch script"`
	Position procflow.Position `json:"position"`
}

type edgeRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

type taskRequest struct {
	Text   string `json:"text" validate:"required,notblank"`
	Due    string `json:"due" validate:"omitempty,due_date"`
	NodeID string `json:"nodeId"`
}

type taskPatchRequest struct {
	NodeID    *string `json:"nodeId"`
	Due       *string `json:"due" validate:"omitempty,due_date"`
	Completed *bool   `json:"completed"`
}

type outputRequest struct {
	Type     string `json:"type" validate:"required,oneof=markDone file link text"`
	Value    string `json:"value" validate:"required_if=Type link,required_if=Type text"`
	FileName string `json:"fileName" validate:"required_if=Type file"`
}

// ── Plumbing ──────────────────────────────────────────────────────────

func (h *handler) decode(c fiber.Ctx, v any) error {
	if err := c.Bind().JSON(v); err != nil {
		return badRequest("invalid body")
	}
	if err := h.validate.Struct(v); err != nil {
		return badRequest(validationMessage(err))
	}
	return nil
}

func fail(c fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var br badRequest
	switch {
	case errors.As(err, &br):
		status = fiber.StatusBadRequest
	case errors.Is(err, procflow.ErrProcessNotFound),
		errors.Is(err, procflow.ErrNodeNotFound),
		errors.Is(err, procflow.ErrEdgeNotFound),
		errors.Is(err, procflow.ErrTaskNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, procflow.ErrSelfLoop),
		errors.Is(err, procflow.ErrNotAStep),
		errors.Is(err, procflow.ErrOutputFinalized),
		errors.Is(err, procflow.ErrUnknownKind):
		status = fiber.StatusUnprocessableEntity
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func (h *handler) load(c fiber.Ctx) (*procflow.Process, error) {
	p, err := h.store.GetProcess(c.Context(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, procflow.ErrProcessNotFound
	}
	p.SetClock(h.now)
	p.Refresh()
	return p, nil
}

// mutate runs fn on the stored process and saves the result. fn's return
// value is the response body; nil sends the whole process.
func (h *handler) mutate(c fiber.Ctx, status int, fn func(p *procflow.Process) (any, error)) error {
	p, err := h.load(c)
	if err != nil {
		return fail(c, err)
	}
	out, err := fn(p)
	if err != nil {
		return fail(c, err)
	}
	if err := h.store.SaveProcess(c.Context(), p); err != nil {
		return fail(c, err)
	}
	if status == fiber.StatusNoContent {
		return c.SendStatus(status)
	}
	if out == nil {
		out = p
	}
	return c.Status(status).JSON(out)
}

// view runs fn on the stored process without saving.
func (h *handler) view(c fiber.Ctx, fn func(p *procflow.Process) (any, error)) error {
	p, err := h.load(c)
	if err != nil {
		return fail(c, err)
	}
	out, err := fn(p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

func actor(c fiber.Ctx) string {
	return strings.TrimSpace(c.Get("X-Actor"))
}

// ── Routes ────────────────────────────────────────────────────────────

func (h *handler) app() *fiber.App {
	app := fiber.New()
	app.Use(recoverer.New())
	if !h.quiet {
		app.Use(logger.New())
	}

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := h.store.CreateSchema(c.Context()); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := h.store.DropSchema(c.Context()); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Processes ─────────────────────────────────────────────────────
	app.Post("/processes", h.createProcess)

	app.Get("/processes", func(c fiber.Ctx) error {
		list, err := h.store.ListProcesses(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(list)
	})

	app.Get("/processes/:id", func(c fiber.Ctx) error {
		return h.view(c, func(p *procflow.Process) (any, error) { return p, nil })
	})

	app.Patch("/processes/:id", func(c fiber.Ctx) error {
		return h.mutate(c, fiber.StatusOK, func(p *procflow.Process) (any, error) {
			var req updateProcessRequest
			if err := h.decode(c, &req); err != nil {
				return nil, err
			}
			if req.Name != nil {
				p.Name = strings.TrimSpace(*req.Name)
			}
			if req.Description != nil {
				p.Description = *req.Description
			}
			if req.DeadlineOrder != nil {
				p.SetDeadlineOrder(procflow.DeadlineOrder(*req.DeadlineOrder))
			}
			return nil, nil
		})
	})

	app.Delete("/processes/:id", func(c fiber.Ctx) error {
		if err := h.store.DeleteProcess(c.Context(), c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Post("/processes/:id/flow", func(c fiber.Ctx) error {
		return h.mutate(c, fiber.StatusOK, func(p *procflow.Process) (any, error) {
			p.RegenerateFlow()
			return nil, nil
		})
	})

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/processes/:id/nodes", func(c fiber.Ctx) error {
		return h.mutate(c, fiber.StatusCreated, func(p *procflow.Process) (any, error) {
			var req nodeRequest
			if err := h.decode(c, &req); err != nil {
				return nil, err
			}
			return p.AddNode(procflow.Kind(req.Kind), req.Position)
		})
	})

	app.Patch("/processes/:id/nodes/:nodeId", func(c fiber.Ctx) error {
		return h.mutate(c, fiber.StatusOK, func(p *procflow.Process) (any, error) {
			patch := json.RawMessage(c.Body())
			var probe map[string]json.RawMessage
			if err := json.Unmarshal(patch, &probe); err != nil {
				return nil, badRequest("attribute patch must be a JSON object")
			}
			nodeID := c.Params("nodeId")
			if err := p.UpdateNodeAttributes(nodeID, patch); err != nil {
				return nil, err
			}
			n, _ := p.Graph.Node(nodeID)
			return n, nil
		})
	})

	app.Delete("/processes/:id/nodes/:nodeId", func(c fiber.Ctx) error {
		return h.mutate(c, fiber.StatusNoContent, func(p *procflow.Process) (any, error) {
			return nil, p.RemoveNode(c.Params("nodeId"))
		})
	})

	app.Get("/processes/:id/nodes/:nodeId/log", func(c fiber.Ctx) error {
		return h.view(c, func(p *procflow.Process) (any, error) {
			return p.Log(c.Params("nodeId"))
		})
	})

	app.Put("/processes/:id/nodes/:nodeId/output", func(c fiber.Ctx) error {
		return h.mutate(c, fiber.StatusOK, func(p *procflow.Process) (any, error) {
			var req outputRequest
			if err := h.decode(c, &req); err != nil {
				return nil, err
			}
			return p.SubmitOutput(c.Params("nodeId"), procflow.Payload{
				Type:     procflow.OutputType(req.Type),
				Value:    strings.TrimSpace(req.Value),
				FileName: strings.TrimSpace(req.FileName),
			}, actor(c), h.now())
		})
	})

	// ── Edges ─────────────────────────────────────────────────────────
	app.Post("/processes/:id/edges", func(c fiber.Ctx) error {
		return h.mutate(c, fiber.StatusCreated, func(p *procflow.Process) (any, error) {
			var req edgeRequest
			if err := h.decode(c, &req); err != nil {
				return nil, err
			}
			if err := p.Connect(req.Source, req.Target); err != nil {
				return nil, err
			}
			return procflow.Edge{Source: req.Source, Target: req.Target}, nil
		})
	})

	app.Delete("/processes/:id/edges", func(c fiber.Ctx) error {
		return h.mutate(c, fiber.StatusNoContent, func(p *procflow.Process) (any, error) {
			return nil, p.Disconnect(c.Query("source"), c.Query("target"))
		})
	})

	// ── Tasks ─────────────────────────────────────────────────────────
	app.Post("/processes/:id/tasks", func(c fiber.Ctx) error {
		return h.mutate(c, fiber.StatusCreated, func(p *procflow.Process) (any, error) {
			var req taskRequest
			if err := h.decode(c, &req); err != nil {
				return nil, err
			}
			return p.AddTask(req.Text, req.Due, req.NodeID)
		})
	})

	app.Patch("/processes/:id/tasks/:taskId", h.patchTask)

	app.Delete("/processes/:id/tasks/:taskId", func(c fiber.Ctx) error {
		return h.mutate(c, fiber.StatusNoContent, func(p *procflow.Process) (any, error) {
			return nil, p.DeleteTask(procflow.TaskID(c.Params("taskId")))
		})
	})

	// ── Derived views ─────────────────────────────────────────────────
	app.Get("/processes/:id/deadline", func(c fiber.Ctx) error {
		return h.view(c, func(p *procflow.Process) (any, error) {
			return fiber.Map{"deadline": p.Deadline}, nil
		})
	})

	app.Get("/processes/:id/status", func(c fiber.Ctx) error {
		return h.view(c, func(p *procflow.Process) (any, error) {
			return p.Status(nil), nil
		})
	})

	app.Get("/processes/:id/calendar", h.calendar)

	return app
}

func (h *handler) createProcess(c fiber.Ctx) error {
	var req createProcessRequest
	if err := h.decode(c, &req); err != nil {
		return fail(c, err)
	}
	tasks := make([]procflow.Task, 0, len(req.Tasks))
	for _, t := range req.Tasks {
		tasks = append(tasks, procflow.Task{ID: t.ID, Text: strings.TrimSpace(t.Text), Due: t.Due})
	}

	p := procflow.NewProcess(strings.TrimSpace(req.Name), tasks)
	p.Description = req.Description
	if req.DeadlineOrder != "" {
		p.SetDeadlineOrder(procflow.DeadlineOrder(req.DeadlineOrder))
	}
	if err := h.store.SaveProcess(c.Context(), p); err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *handler) patchTask(c fiber.Ctx) error {
	return h.mutate(c, fiber.StatusOK, func(p *procflow.Process) (any, error) {
		var req taskPatchRequest
		if err := h.decode(c, &req); err != nil {
			return nil, err
		}
		id := procflow.TaskID(c.Params("taskId"))
		if _, ok := p.Task(id); !ok {
			return nil, fmt.Errorf("%w: %q", procflow.ErrTaskNotFound, id)
		}
		if req.NodeID != nil {
			if err := p.AssignTask(id, strings.TrimSpace(*req.NodeID)); err != nil {
				return nil, err
			}
		}
		if req.Due != nil {
			if err := p.SetTaskDue(id, *req.Due); err != nil {
				return nil, err
			}
		}
		if req.Completed != nil {
			var err error
			if *req.Completed {
				err = p.CompleteTask(id, actor(c), h.now())
			} else {
				err = p.ReopenTask(id)
			}
			if err != nil {
				return nil, err
			}
		}
		t, _ := p.Task(id)
		return t, nil
	})
}

func (h *handler) calendar(c fiber.Ctx) error {
	return h.view(c, func(p *procflow.Process) (any, error) {
		now := h.now().In(h.loc)
		year, month := now.Year(), int(now.Month())
		if v := c.Query("year"); v != "" {
			y, err := strconv.Atoi(v)
			if err != nil {
				return nil, badRequest("year must be a number")
			}
			year = y
		}
		if v := c.Query("month"); v != "" {
			m, err := strconv.Atoi(v)
			if err != nil || m < 1 || m > 12 {
				return nil, badRequest("month must be between 1 and 12")
			}
			month = m
		}

		cal := p.Calendar(h.loc)
		entries := cal.Entries()
		if entries == nil {
			entries = []procflow.CalendarEntry{}
		}
		return fiber.Map{
			"month":   fmt.Sprintf("%04d-%02d", year, month),
			"entries": entries,
			"days":    cal.Days(year, time.Month(month)),
		}, nil
	})
}
