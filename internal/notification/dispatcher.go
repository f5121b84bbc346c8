// Package notification renders and sends the transactional emails of the site.
package notification

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/edxco/properlia/internal/apperror"
	"github.com/edxco/properlia/internal/model"
	"github.com/edxco/properlia/pkg/mailer"
	"github.com/edxco/properlia/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultContactSubject is used when a contact form carries no subject
const DefaultContactSubject = "New Contact Form Submission"

const (
	templateContact         = "contact"
	templateInquiry         = "inquiry"
	templateWelcome         = "welcome"
	templatePropertyCreated = "property_created"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"nl2br":       nl2br,
	"formatPrice": FormatPrice,
	"truncate":    truncate,
}).ParseFS(templateFS, "templates/*.html"))

// RecipientSource provides the site's contact address
type RecipientSource interface {
	GetOrCreate(ctx context.Context) (*model.GeneralInfo, error)
}

// Options configures a Dispatcher
type Options struct {
	FrontendURL string
	// Timeout bounds each background send
	Timeout time.Duration
}

// Dispatcher composes emails and hands them to a mailer
type Dispatcher struct {
	mailer      mailer.Mailer
	recipients  RecipientSource
	frontendURL string
	timeout     time.Duration
	log         *zap.Logger
	wg          sync.WaitGroup
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(m mailer.Mailer, recipients RecipientSource, opts Options, log *zap.Logger) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		mailer:      m,
		recipients:  recipients,
		frontendURL: strings.TrimRight(opts.FrontendURL, "/"),
		timeout:     opts.Timeout,
		log:         log,
	}
}

// ContactForm is a message from the public contact form
type ContactForm struct {
	Name    string
	Email   string
	Message string
	Subject string
}

// Inquiry is a question about one property
type Inquiry struct {
	PropertyID    string
	PropertyTitle string
	Name          string
	Email         string
	Phone         string
	Message       string
}

// SendContact forwards a contact form to the site's address, replying to the sender
func (d *Dispatcher) SendContact(ctx context.Context, form ContactForm) (string, error) {
	if strings.TrimSpace(form.Subject) == "" {
		form.Subject = DefaultContactSubject
	}
	to, err := d.siteAddress(ctx)
	if err != nil {
		return "", err
	}
	return d.send(ctx, templateContact, mailer.Message{
		To:      []string{to},
		ReplyTo: form.Email,
		Subject: form.Subject,
	}, form)
}

// SendInquiry forwards a property inquiry to the site's address
func (d *Dispatcher) SendInquiry(ctx context.Context, in Inquiry) (string, error) {
	to, err := d.siteAddress(ctx)
	if err != nil {
		return "", err
	}
	return d.send(ctx, templateInquiry, mailer.Message{
		To:      []string{to},
		ReplyTo: in.Email,
		Subject: "Property Inquiry: " + in.PropertyTitle,
	}, in)
}

// SendWelcome greets a user
func (d *Dispatcher) SendWelcome(ctx context.Context, u *model.User) (string, error) {
	name := u.Name
	if name == "" {
		name = u.Email
	}
	return d.send(ctx, templateWelcome, mailer.Message{
		To:      []string{u.Email},
		Subject: "Welcome to Properlia!",
	}, struct {
		Name        string
		FrontendURL string
	}{name, d.frontendURL})
}

// SendPropertyConfirmation tells the site's address that p was created
func (d *Dispatcher) SendPropertyConfirmation(ctx context.Context, p *model.Property) (string, error) {
	to, err := d.siteAddress(ctx)
	if err != nil {
		return "", err
	}
	return d.send(ctx, templatePropertyCreated, mailer.Message{
		To:      []string{to},
		Subject: ConfirmationSubject(p),
	}, d.confirmationView(p))
}

// PropertyCreated sends the creation confirmation in the background. Failures are
// logged and counted; they never reach the caller.
func (d *Dispatcher) PropertyCreated(ctx context.Context, p *model.Property) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("Property confirmation panicked",
					zap.String("property_id", p.ID.String()),
					zap.Any("panic", r))
			}
		}()

		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		id, err := d.SendPropertyConfirmation(sendCtx, p)
		if err != nil {
			d.log.Error("Failed to send property confirmation",
				zap.String("property_id", p.ID.String()),
				zap.Error(err))
			return
		}
		d.log.Info("Property confirmation sent",
			zap.String("property_id", p.ID.String()),
			zap.String("message_id", id))
	}()
}

// Wait blocks until every background send has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) siteAddress(ctx context.Context) (string, error) {
	info, err := d.recipients.GetOrCreate(ctx)
	if err != nil {
		return "", fmt.Errorf("load general info: %w", err)
	}
	return info.EmailTo, nil
}

func (d *Dispatcher) send(ctx context.Context, name string, msg mailer.Message, data interface{}) (string, error) {
	html, err := render(name, data)
	if err != nil {
		return "", err
	}
	msg.HTML = html

	id, err := d.mailer.Send(ctx, msg)
	metrics.RecordEmailDispatch(name, err)
	if err != nil {
		return "", apperror.External("email", err)
	}
	d.log.Info("Email sent", zap.String("template", name), zap.String("message_id", id))
	return id, nil
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	return buf.String(), nil
}

type confirmationView struct {
	ID           string
	Title        string
	Price        float64
	PropertyType string
	Status       string
	Neighborhood string
	City         string
	State        string
	CreatedAt    string
	URL          string
}

func (d *Dispatcher) confirmationView(p *model.Property) confirmationView {
	return confirmationView{
		ID:           p.ID.String(),
		Title:        p.Title,
		Price:        p.Price,
		PropertyType: propertyTypeLabel(p),
		Status:       statusLabel(p),
		Neighborhood: orUnspecified(p.Neighborhood),
		City:         orUnspecified(p.City),
		State:        orUnspecified(p.State),
		CreatedAt:    p.CreatedAt.Format("02/01/2006 15:04"),
		URL:          d.frontendURL + "/properties/" + p.ID.String(),
	}
}

// ConfirmationSubject is the subject of the creation confirmation
func ConfirmationSubject(p *model.Property) string {
	var typeName, listingName, city string
	if p.PropertyType != nil {
		typeName = p.PropertyType.EsName
	}
	if p.ListingType != nil {
		listingName = p.ListingType.EsName
	}
	if p.City != nil {
		city = *p.City
	}
	return fmt.Sprintf("Confirmación %s en %s, %s, %s", typeName, listingName, p.Address, city)
}

func propertyTypeLabel(p *model.Property) string {
	if p.PropertyType == nil {
		return referenceLabel(nil)
	}
	return referenceLabel(&p.PropertyType.Reference)
}

func statusLabel(p *model.Property) string {
	if p.Status == nil {
		return referenceLabel(nil)
	}
	return referenceLabel(&p.Status.Reference)
}

func referenceLabel(r *model.Reference) string {
	switch {
	case r == nil:
		return "N/A"
	case r.EsName != "":
		return r.EsName
	case r.Name != "":
		return r.Name
	}
	return "N/A"
}

func orUnspecified(s *string) string {
	if s == nil || *s == "" {
		return "No especificado"
	}
	return *s
}

// FormatPrice renders a price with a dollar sign and comma grouping ("$1,250,000")
func FormatPrice(price float64) string {
	p := message.NewPrinter(language.English)
	if price == float64(int64(price)) {
		return "$" + p.Sprintf("%d", int64(price))
	}
	return "$" + p.Sprintf("%.2f", price)
}

func nl2br(s string) template.HTML {
	return template.HTML(strings.ReplaceAll(template.HTMLEscapeString(s), "\n", "<br>"))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
