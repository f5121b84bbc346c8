package repository

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/edxco/properlia/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PropertyFilter narrows a property list. Every set field must match.
type PropertyFilter struct {
	Featured       *bool
	StatusID       *uuid.UUID
	StatusName     string
	PropertyTypeID *uuid.UUID
	ListingTypeID  *uuid.UUID

	// unmatchable is set when an id filter could not be parsed; no row can match it
	unmatchable bool
}

// ParsePropertyFilter reads the filter query parameters. Unknown parameters are ignored,
// an unparseable featured value is ignored, and an unparseable id yields a filter that
// matches nothing.
func ParsePropertyFilter(q url.Values) PropertyFilter {
	var f PropertyFilter

	if v := strings.TrimSpace(q.Get("featured")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Featured = &b
		}
	}

	parseID := func(name string) *uuid.UUID {
		v := strings.TrimSpace(q.Get(name))
		if v == "" {
			return nil
		}
		id, err := uuid.Parse(v)
		if err != nil {
			f.unmatchable = true
			return nil
		}
		return &id
	}

	f.StatusID = parseID("status_id")
	if f.StatusID == nil && !f.unmatchable {
		f.StatusName = strings.TrimSpace(q.Get("status"))
	}
	f.PropertyTypeID = parseID("property_type_id")
	f.ListingTypeID = parseID("listing_type_id")
	return f
}

// CacheParams is the normalized form of the filter, used to key cached pages
func (f PropertyFilter) CacheParams() map[string]string {
	params := map[string]string{}
	if f.Featured != nil {
		params["featured"] = strconv.FormatBool(*f.Featured)
	}
	if f.StatusID != nil {
		params["status_id"] = f.StatusID.String()
	}
	if f.StatusName != "" {
		params["status"] = strings.ToLower(f.StatusName)
	}
	if f.PropertyTypeID != nil {
		params["property_type_id"] = f.PropertyTypeID.String()
	}
	if f.ListingTypeID != nil {
		params["listing_type_id"] = f.ListingTypeID.String()
	}
	if f.unmatchable {
		params["unmatchable"] = "true"
	}
	return params
}

func (f PropertyFilter) matchesNothing() bool {
	return f.unmatchable
}

// apply adds the filter conditions to q. db builds the status name subquery.
func (f PropertyFilter) apply(db *gorm.DB, q *gorm.DB) *gorm.DB {
	if f.Featured != nil {
		q = q.Where("properties.featured = ?", *f.Featured)
	}
	switch {
	case f.StatusID != nil:
		q = q.Where("properties.status_id = ?", *f.StatusID)
	case f.StatusName != "":
		q = q.Where("properties.status_id IN (?)",
			db.Model(&model.Status{}).Select("id").Where("LOWER(name) = LOWER(?)", f.StatusName))
	}
	if f.PropertyTypeID != nil {
		q = q.Where("properties.property_type_id = ?", *f.PropertyTypeID)
	}
	if f.ListingTypeID != nil {
		q = q.Where("properties.listing_type_id = ?", *f.ListingTypeID)
	}
	return q
}
