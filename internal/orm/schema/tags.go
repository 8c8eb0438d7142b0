package schema

import (
	"strconv"
	"strings"

	"github.com/conduit-lang/rowmap/internal/orm/property"
)

const (
	tagColumn = "db"
	tagID     = "pk"
	tagCopy   = "copy"
)

// columnTag is the parsed persistence annotation of one property.
//
//	db:"-"                          transient
//	db:"name,pk,readonly,noinsert"  explicit column
//	pk:"true"                       identifier marker
type columnTag struct {
	name      string
	explicit  bool
	transient bool
	id        bool
	readonly  bool
	noinsert  bool
}

func parseColumnTag(p *property.Property) columnTag {
	var tag columnTag

	if raw, ok := p.Tag(tagColumn); ok {
		if strings.TrimSpace(raw) == "-" {
			tag.transient = true
			return tag
		}
		tag.explicit = true
		parts := strings.Split(raw, ",")
		tag.name = strings.TrimSpace(parts[0])
		for _, opt := range parts[1:] {
			switch strings.TrimSpace(opt) {
			case "pk":
				tag.id = true
			case "readonly":
				tag.readonly = true
			case "noinsert":
				tag.noinsert = true
			}
		}
	}

	if raw, ok := p.Tag(tagID); ok {
		if v, err := strconv.ParseBool(strings.TrimSpace(raw)); err == nil && v {
			tag.id = true
		} else if strings.TrimSpace(raw) == "" {
			tag.id = true
		}
	}

	return tag
}

func (t columnTag) insertable() bool { return !t.noinsert }

func (t columnTag) updatable() bool { return !t.noinsert && !t.readonly }
