// Package orb adapts decoded Antelope ORB object packets to the CSS table
// shapes the record normalizer consumes. Transport and byte-level packet
// decoding are external collaborators; this package only maps a decoded
// packet (source name plus payload fields) onto a table tag and row.
package orb

import (
	"fmt"
	"strings"

	"github.com/seisops/db2qml/internal/catalog"
	"github.com/seisops/db2qml/internal/schema"
)

// Packet is one decoded ORB object packet. SrcName follows the Antelope
// "net/db/table" convention (e.g. "NN/db/origin"); Payload carries the
// CSS-shaped named fields of the record.
type Packet struct {
	SrcName string
	Time    float64 // packet timestamp, epoch seconds
	Payload map[string]string
}

// Table extracts the CSS table name from the packet source name.
// Accepted forms: "net/db/table", "/db/table", "net/table".
func (p Packet) Table() (string, error) {
	parts := strings.Split(p.SrcName, "/")
	for i, part := range parts {
		if part == "db" && i+1 < len(parts) {
			return parts[i+1], nil
		}
	}
	if len(parts) >= 2 && parts[len(parts)-1] != "" {
		return parts[len(parts)-1], nil
	}
	return "", fmt.Errorf("orb: srcname %q has no table component", p.SrcName)
}

// Decode normalizes the packet payload through the CSS table specification
// named by the source name. Records keep ORB provenance so that source
// precedence can be applied when the same entity also arrives from a
// database row.
func Decode(p Packet) (schema.Record, error) {
	table, err := p.Table()
	if err != nil {
		return nil, err
	}
	return schema.Normalize(table, schema.Row(p.Payload), catalog.SchemaORB)
}
