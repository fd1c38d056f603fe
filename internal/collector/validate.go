package collector

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"NetSentinel/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		})
		_ = validate.RegisterValidation("tcpflags", func(fl validator.FieldLevel) bool {
			return model.ValidTCPFlags(fl.Field().String())
		})
		validate.RegisterStructValidation(func(sl validator.StructLevel) {
			p := sl.Current().Interface().(recordPayload)
			if p.TCPFlags != "" && !strings.EqualFold(p.Protocol, string(model.ProtocolTCP)) {
				sl.ReportError(p.TCPFlags, "tcp_flags", "TCPFlags", "tcponly", "")
			}
		}, recordPayload{})
	})
	return validate
}

// recordPayload is the wire shape of one ingested record. Pointers
// distinguish missing fields from zero values.
type recordPayload struct {
	Timestamp  *time.Time `json:"timestamp"`
	SourceIP   string     `json:"source_ip" validate:"required,ip"`
	DestIP     string     `json:"dest_ip" validate:"required,ip"`
	SourcePort *int       `json:"source_port" validate:"required,min=0,max=65535"`
	DestPort   *int       `json:"dest_port" validate:"required,min=0,max=65535"`
	Protocol   string     `json:"protocol" validate:"required,oneof=TCP UDP ICMP UNKNOWN tcp udp icmp unknown"`
	PacketSize *int       `json:"packet_size" validate:"required,min=0"`
	TCPFlags   string     `json:"tcp_flags" validate:"tcpflags"`
}

// decodeRecord turns one raw payload into a TrafficRecord, or returns the
// reason it was rejected. A missing or zero timestamp is stamped with now.
func decodeRecord(raw json.RawMessage, now time.Time) (model.TrafficRecord, string) {
	var p recordPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.TrafficRecord{}, "malformed json"
	}
	if err := getValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return model.TrafficRecord{}, fmt.Sprintf("invalid %s (%s)", verrs[0].Field(), verrs[0].Tag())
		}
		return model.TrafficRecord{}, "invalid record"
	}
	proto, _ := model.ParseProtocol(p.Protocol)
	ts := now
	if p.Timestamp != nil && !p.Timestamp.IsZero() {
		ts = *p.Timestamp
	}
	return model.TrafficRecord{
		Timestamp:  ts.UTC(),
		SourceIP:   p.SourceIP,
		DestIP:     p.DestIP,
		SourcePort: *p.SourcePort,
		DestPort:   *p.DestPort,
		Protocol:   proto,
		PacketSize: *p.PacketSize,
		TCPFlags:   p.TCPFlags,
	}, ""
}
