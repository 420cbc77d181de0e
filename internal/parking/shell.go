package parking

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Lifecycle is the slot API driven by the shell and the HTTP server. Both
// *Manager and *InstrumentedManager implement it.
type Lifecycle interface {
	InitPool(ctx context.Context, count int) (int, error)
	Book(ctx context.Context, slotID int, plate, category string) (Slot, error)
	Park(ctx context.Context, slotID int, plate string) (Slot, error)
	Clear(ctx context.Context, slotID int, authorizingPlate string, ratePerHour float64) (FeeRecord, error)
	ListAll(ctx context.Context) ([]Slot, error)
	FindByPlate(ctx context.Context, plate string) ([]Slot, error)
	ParkedMatchingAllowlist(ctx context.Context, allowlist []string) ([]Slot, error)
}

var (
	_ Lifecycle = (*Manager)(nil)
	_ Lifecycle = (*InstrumentedManager)(nil)
)

type RecognitionHandler interface {
	AutoParkFromRecognition(ctx context.Context, recognizedPlate string) AutoParkResult
}

// EmployeeDirectory holds the employee plate allowlist.
type EmployeeDirectory interface {
	Add(ctx context.Context, plate string) error
	Remove(ctx context.Context, plate string) error
	List(ctx context.Context) ([]string, error)
}

type Shell struct {
	lot       Lifecycle
	autoPark  RecognitionHandler
	employees EmployeeDirectory
	tracer    trace.Tracer

	scanner *bufio.Scanner
	out     io.Writer
}

type ShellOption func(*Shell)

func WithShellTracer(tracer trace.Tracer) ShellOption {
	return func(s *Shell) { s.tracer = tracer }
}

func NewShell(lot Lifecycle, autoPark RecognitionHandler, employees EmployeeDirectory, in io.Reader, out io.Writer, opts ...ShellOption) *Shell {
	s := &Shell{
		lot:       lot,
		autoPark:  autoPark,
		employees: employees,
		tracer:    noop.NewTracerProvider().Tracer("shell"),
		scanner:   bufio.NewScanner(in),
		out:       out,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one command per input line until the input ends or ctx is
// canceled.
func (s *Shell) Run(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for ctx.Err() == nil && s.scanner.Scan() {
		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}
		s.processCommand(ctx, input)
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) processCommand(ctx context.Context, input string) {
	parts := strings.Fields(input)
	command := parts[0]

	ctx, span := s.tracer.Start(ctx, "shell.process_command",
		trace.WithAttributes(attribute.String("command.name", command)))
	defer span.End()

	var err error
	switch command {
	case "init_pool":
		err = s.handleInitPool(ctx, parts)
	case "book":
		err = s.handleBook(ctx, parts)
	case "park":
		err = s.handlePark(ctx, parts)
	case "clear":
		err = s.handleClear(ctx, parts)
	case "status":
		err = s.handleStatus(ctx)
	case "find":
		err = s.handleFind(ctx, parts)
	case "auto_park":
		s.handleAutoPark(ctx, parts)
	case "parked_employees":
		err = s.handleParkedEmployees(ctx)
	case "add_employee":
		err = s.handleEmployee(ctx, parts, "add")
	case "remove_employee":
		err = s.handleEmployee(ctx, parts, "remove")
	default:
		span.AddEvent("unknown_command")
		s.printf("Unknown command: %s\n", command)
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.printf("Error: %s\n", err.Error())
	}
}

type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

func (s *Shell) handleInitPool(ctx context.Context, parts []string) error {
	if len(parts) != 2 {
		return usageError("init_pool <count>")
	}
	count, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("invalid count %q", parts[1])
	}

	created, err := s.lot.InitPool(ctx, count)
	if err != nil {
		return err
	}
	if created == 0 {
		s.printf("Slot pool already initialized\n")
		return nil
	}
	s.printf("Created a slot pool with %d slots\n", created)
	return nil
}

func (s *Shell) handleBook(ctx context.Context, parts []string) error {
	if len(parts) != 4 {
		return usageError("book <slot_id> <plate> <category>")
	}
	slotID, err := parseSlotID(parts[1])
	if err != nil {
		return err
	}

	slot, err := s.lot.Book(ctx, slotID, parts[2], parts[3])
	if err != nil {
		return err
	}
	s.printf("Booked slot number %d for %s\n", slot.ID, slot.Plate)
	return nil
}

func (s *Shell) handlePark(ctx context.Context, parts []string) error {
	if len(parts) != 3 {
		return usageError("park <slot_id> <plate>")
	}
	slotID, err := parseSlotID(parts[1])
	if err != nil {
		return err
	}

	slot, err := s.lot.Park(ctx, slotID, parts[2])
	if err != nil {
		return err
	}
	s.printf("Parked %s in slot number %d\n", slot.Plate, slot.ID)
	return nil
}

func (s *Shell) handleClear(ctx context.Context, parts []string) error {
	if len(parts) != 3 && len(parts) != 4 {
		return usageError("clear <slot_id> <plate> [rate_per_hour]")
	}
	slotID, err := parseSlotID(parts[1])
	if err != nil {
		return err
	}
	var rate float64
	if len(parts) == 4 {
		if rate, err = strconv.ParseFloat(parts[3], 64); err != nil {
			return fmt.Errorf("invalid rate %q", parts[3])
		}
	}

	record, err := s.lot.Clear(ctx, slotID, parts[2], rate)
	if err != nil {
		return err
	}
	s.printf("Slot number %d is free. Fee: %.2f (%.2f h at %.2f/h)\n",
		record.SlotID, record.Fee, record.DurationHours, record.RatePerHour)
	return nil
}

func (s *Shell) handleStatus(ctx context.Context) error {
	slots, err := s.lot.ListAll(ctx)
	if err != nil {
		return err
	}

	o := Summarize(slots)
	if o.Booked+o.Parked == 0 {
		s.printf("Parking lot is empty (%d free slots)\n", o.Free)
		return nil
	}

	s.printf("Slot No.\tCategory\tStatus\tPlate\n")
	for _, slot := range slots {
		if slot.IsFree() {
			continue
		}
		s.printf("%d\t\t%s\t%s\t%s\n", slot.ID, slot.Category, slot.Status, slot.Plate)
	}
	s.printf("Free: %d  Booked: %d  Parked: %d\n", o.Free, o.Booked, o.Parked)
	return nil
}

func (s *Shell) handleFind(ctx context.Context, parts []string) error {
	if len(parts) != 2 {
		return usageError("find <plate>")
	}

	slots, err := s.lot.FindByPlate(ctx, parts[1])
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		s.printf("Not found\n")
		return nil
	}
	for _, slot := range slots {
		s.printf("%d\t%s\n", slot.ID, slot.Status)
	}
	return nil
}

func (s *Shell) handleAutoPark(ctx context.Context, parts []string) {
	plate := ""
	if len(parts) > 1 {
		plate = parts[1]
	}
	result := s.autoPark.AutoParkFromRecognition(ctx, plate)
	s.printf("%s\n", result.Message)
}

func (s *Shell) handleParkedEmployees(ctx context.Context) error {
	plates, err := s.employees.List(ctx)
	if err != nil {
		return err
	}
	slots, err := s.lot.ParkedMatchingAllowlist(ctx, plates)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		s.printf("No employees parked\n")
		return nil
	}
	for _, slot := range slots {
		s.printf("%d\t%s\n", slot.ID, slot.Plate)
	}
	return nil
}

func (s *Shell) handleEmployee(ctx context.Context, parts []string, action string) error {
	if len(parts) != 2 {
		return usageError(action + "_employee <plate>")
	}
	plate := NormalizePlate(parts[1])

	if action == "add" {
		if err := s.employees.Add(ctx, plate); err != nil {
			return err
		}
		s.printf("Added employee %s\n", plate)
		return nil
	}
	if err := s.employees.Remove(ctx, plate); err != nil {
		return err
	}
	s.printf("Removed employee %s\n", plate)
	return nil
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func parseSlotID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid slot number %q", raw)
	}
	return id, nil
}
