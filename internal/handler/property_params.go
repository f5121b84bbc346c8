package handler

import (
	"io"
	"math"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/edxco/properlia/internal/repository"
	"github.com/edxco/properlia/pkg/validation"
)

const propertyRoot = "property"

var (
	requiredTextFields = []string{"title", "address"}
	optionalTextFields = []string{"description", "city", "state", "zip_code", "neighborhood", "coordinates"}
	countFields        = []string{"rooms", "bathrooms", "half_bathrooms", "parking_spaces"}
	referenceFields    = []string{"property_type_id", "status_id", "listing_type_id"}
)

// falseValues are the strings a form or JSON body may use for false
var falseValues = map[string]bool{"0": true, "f": true, "false": true, "off": true}

// propertyInput converts the property group of a request into repository input. Unknown
// fields are ignored.
func propertyInput(p *requestParams) (repository.PropertyInput, repository.Media, error) {
	var in repository.PropertyInput
	fields, err := p.require(propertyRoot)
	if err != nil {
		return in, repository.Media{}, err
	}

	clear := func(name string) { in.Cleared = append(in.Cleared, name) }
	invalid := func(name, msg string) {
		in.Invalid = append(in.Invalid, validation.Humanize(name)+" "+msg)
	}

	for _, name := range requiredTextFields {
		v, ok := fields[name]
		switch {
		case !ok:
		case v.null:
			clear(name)
		default:
			s := v.text
			setText(&in, name, &s)
		}
	}

	for _, name := range optionalTextFields {
		v, ok := fields[name]
		switch {
		case !ok:
		case v.blank():
			clear(name)
		default:
			s := v.text
			setText(&in, name, &s)
		}
	}

	for _, name := range []string{"land_area", "built_area", "price"} {
		v, ok := fields[name]
		if !ok {
			continue
		}
		if v.blank() {
			clear(name)
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			invalid(name, "is not a number")
			continue
		}
		switch name {
		case "land_area":
			in.LandArea = &f
		case "built_area":
			in.BuiltArea = &f
		case "price":
			in.Price = &f
		}
	}

	for _, name := range countFields {
		v, ok := fields[name]
		if !ok || v.blank() {
			continue
		}
		n, msg := parseCount(v.text)
		if msg != "" {
			invalid(name, msg)
			continue
		}
		switch name {
		case "rooms":
			in.Rooms = &n
		case "bathrooms":
			in.Bathrooms = &n
		case "half_bathrooms":
			in.HalfBathrooms = &n
		case "parking_spaces":
			in.ParkingSpaces = &n
		}
	}

	if v, ok := fields["featured"]; ok && !v.blank() {
		b := !falseValues[strings.ToLower(strings.TrimSpace(v.text))]
		in.Featured = &b
	}

	for _, name := range referenceFields {
		v, ok := fields[name]
		switch {
		case !ok:
		case v.blank():
			clear(name)
		default:
			s := strings.TrimSpace(v.text)
			switch name {
			case "property_type_id":
				in.PropertyTypeID = &s
			case "status_id":
				in.StatusID = &s
			case "listing_type_id":
				in.ListingTypeID = &s
			}
		}
	}

	media := repository.Media{
		Images: uploads(p.filesOf(propertyRoot, "images")),
		Videos: uploads(p.filesOf(propertyRoot, "videos")),
	}
	return in, media, nil
}

func setText(in *repository.PropertyInput, name string, s *string) {
	switch name {
	case "title":
		in.Title = s
	case "address":
		in.Address = s
	case "description":
		in.Description = s
	case "city":
		in.City = s
	case "state":
		in.State = s
	case "zip_code":
		in.ZipCode = s
	case "neighborhood":
		in.Neighborhood = s
	case "coordinates":
		in.Coordinates = s
	}
}

// parseCount accepts integers and integral decimals ("3", "3.0")
func parseCount(s string) (int, string) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, ""
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, "is not a number"
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, "must be an integer"
	}
	return int(f), ""
}

func uploads(headers []*multipart.FileHeader) []repository.Upload {
	if len(headers) == 0 {
		return nil
	}
	out := make([]repository.Upload, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		out = append(out, repository.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return out
}
