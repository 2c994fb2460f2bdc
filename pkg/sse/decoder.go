package sse

import "strings"

// Decoder accumulates SSE fields line by line. It holds no reader of its own
// so callers that receive a stream in fragments (for example, payload parts
// of a hosted endpoint response) can feed it complete lines as they form.
type Decoder struct {
	current   Event
	hasFields bool
	dataLines int
}

// Line consumes one line without its trailing newline. It returns the
// completed event when line is the blank line that terminates one.
func (d *Decoder) Line(raw string) (*Event, bool) {
	raw = strings.TrimSuffix(raw, "\r")

	// A blank line signals the end of the current event.
	if raw == "" {
		if !d.hasFields {
			// Leading blank lines or keep-alive newlines.
			return nil, false
		}
		return d.take(), true
	}

	// Lines starting with ':' are comments.
	if strings.HasPrefix(raw, ":") {
		return nil, false
	}

	d.parseLine(raw)
	return nil, false
}

// Flush returns the in-progress event, if any, for streams that end without
// a trailing blank line.
func (d *Decoder) Flush() *Event {
	if !d.hasFields {
		return nil
	}
	return d.take()
}

// parseLine accumulates a single "field:value" line. The first space after
// the colon is optional and stripped if present.
func (d *Decoder) parseLine(line string) {
	field, value, ok := strings.Cut(line, ":")
	if ok {
		value = strings.TrimPrefix(value, " ")
	} else {
		// No colon: the entire line is the field name with an empty value.
		field = line
	}

	switch field {
	case "data":
		if d.dataLines > 0 {
			d.current.Data += "\n"
		}
		d.current.Data += value
		d.dataLines++
		d.hasFields = true
	case "event":
		d.current.Type = value
		d.hasFields = true
	case "id":
		d.current.ID = value
		d.hasFields = true
	default:
		// "retry" and unknown fields are ignored.
	}
}

func (d *Decoder) take() *Event {
	ev := d.current
	d.current = Event{}
	d.hasFields = false
	d.dataLines = 0
	return &ev
}
