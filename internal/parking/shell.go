package parking

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const shellUsage = `Commands:
  park <size> [<size>...]   park vehicles (0=small, 1=medium, 2=large)
  unpark <slot>             release a slot, e.g. unpark MP2
  quote <slot>              fee due if the vehicle left now
  show_all                  list parked vehicles
  status                    occupancy per slot class
  add_entry_point           add one slot to every class
  clear                     remove every parked vehicle
  exit                      leave the shell`

// Shell is a line-oriented command interface to a parking lot.
type Shell struct {
	lot       *InstrumentedParkingLot
	scanner   *bufio.Scanner
	out       io.Writer
	telemetry *TelemetryProvider
}

func NewShell(lot *InstrumentedParkingLot, telemetry *TelemetryProvider, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		lot:       lot,
		scanner:   bufio.NewScanner(in),
		out:       out,
		telemetry: telemetry,
	}
}

// Run processes commands until the input is exhausted, "exit" is read or ctx
// is cancelled. Cancellation is noticed between lines.
func (s *Shell) Run(ctx context.Context) error {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}

		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))
		exit := s.processCommand(cmdCtx, input)
		cmdSpan.End()

		if exit {
			break
		}
	}

	span.AddEvent("shell_ended")
	return s.scanner.Err()
}

func (s *Shell) processCommand(ctx context.Context, input string) bool {
	span := trace.SpanFromContext(ctx)

	parts := strings.Fields(input)
	command := parts[0]
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case "park":
		s.handlePark(ctx, parts)
	case "unpark", "leave":
		s.handleUnpark(ctx, parts)
	case "quote":
		s.handleQuote(ctx, parts)
	case "show_all":
		s.handleShowAll(ctx)
	case "status":
		s.handleStatus(ctx)
	case "add_entry_point":
		s.handleAddEntryPoint(ctx)
	case "clear":
		s.lot.Clear(ctx)
		s.println("All parking slots have been cleared")
	case "help":
		s.println(shellUsage)
	case "exit", "quit":
		return true
	default:
		span.AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		s.printf("Unknown command: %s\n", command)
	}
	return false
}

func (s *Shell) handlePark(ctx context.Context, parts []string) {
	span := trace.SpanFromContext(ctx)

	if len(parts) < 2 {
		span.AddEvent("invalid_arguments")
		s.println("Usage: park <size> [<size>...]")
		return
	}

	codes := make([]int, 0, len(parts)-1)
	for _, p := range parts[1:] {
		code, err := strconv.Atoi(p)
		if err != nil {
			span.RecordError(fmt.Errorf("invalid vehicle size: %s", p))
			s.printf("Invalid vehicle size: %s\n", p)
			return
		}
		codes = append(codes, code)
	}

	for i, allocation := range s.lot.ParkVehicles(ctx, codes) {
		switch allocation.Status {
		case Assigned:
			v := allocation.Vehicle
			s.printf("Vehicle %d (%s) parked in slot %s\n", i+1, v.Size.VehicleType(), v.Slot)
		case NoSlotAvailable:
			s.printf("Vehicle %d (%s): no available slot\n", i+1, Size(allocation.Code).VehicleType())
		case InvalidSize:
			s.printf("Vehicle %d: invalid vehicle size %d\n", i+1, allocation.Code)
		}
	}
}

func (s *Shell) handleUnpark(ctx context.Context, parts []string) {
	slot, ok := s.slotArgument(ctx, parts, "unpark")
	if !ok {
		return
	}

	receipt, ok := s.lot.Unpark(ctx, slot)
	if !ok {
		s.printf("Slot %s is already empty\n", slot)
		return
	}

	s.printf("Vehicle unparked from slot %s. Parking fee: %d (%dh)\n", slot, receipt.Fee, receipt.Hours)
}

func (s *Shell) handleQuote(ctx context.Context, parts []string) {
	slot, ok := s.slotArgument(ctx, parts, "quote")
	if !ok {
		return
	}

	receipt, ok := s.lot.Quote(ctx, slot)
	if !ok {
		s.printf("Slot %s is empty\n", slot)
		return
	}

	s.printf("Slot %s owes %d after %dh\n", slot, receipt.Fee, receipt.Hours)
}

func (s *Shell) slotArgument(ctx context.Context, parts []string, command string) (SlotID, bool) {
	span := trace.SpanFromContext(ctx)

	if len(parts) != 2 {
		span.AddEvent("invalid_arguments")
		s.printf("Usage: %s <slot>\n", command)
		return SlotID{}, false
	}

	slot, err := ParseSlotID(parts[1])
	if err != nil {
		span.RecordError(err)
		s.printf("Slot %s is already empty\n", parts[1])
		return SlotID{}, false
	}

	span.SetAttributes(attribute.String("slot", slot.String()))
	return slot, true
}

func (s *Shell) handleShowAll(ctx context.Context) {
	parked := s.lot.AllParked(ctx)
	if len(parked) == 0 {
		s.println("Parking lot is empty")
		return
	}

	s.println("Slot\tType\tEntry time")
	for _, v := range parked {
		s.printf("%s\t%s\t%s\n", v.Slot, v.Size.VehicleType(), v.EntryTime.Format("2006-01-02 15:04:05"))
	}
}

func (s *Shell) handleStatus(ctx context.Context) {
	s.printf("Entry points: %d\n", s.lot.EntryPoints())
	s.println("Class\tCapacity\tOccupied\tAvailable")
	for _, o := range s.lot.Occupancy(ctx) {
		s.printf("%s\t%d\t\t%d\t\t%d\n", o.Class.SlotPrefix(), o.Capacity, o.Occupied, o.Available)
	}
}

func (s *Shell) handleAddEntryPoint(ctx context.Context) {
	entryPoints := s.lot.AddEntryPoint(ctx)
	s.printf("Entry points: %d\n", entryPoints)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) println(line string) {
	fmt.Fprintln(s.out, line)
}
