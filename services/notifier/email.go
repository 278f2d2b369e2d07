package notifiersvc

import (
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/trezcool/darasa/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

type emailNotifier struct {
	next       core.Notifier
	logger     core.Logger
	key        string
	from       *sgmail.Email
	to         *sgmail.Email
	subjPrefix string
}

var _ core.Notifier = (*emailNotifier)(nil)

// NewEmailNotifier forwards every notification to next and additionally mails
// error/warning notifications to the ops address via sendgrid.
func NewEmailNotifier(conf *core.Config, logger core.Logger, next core.Notifier) core.Notifier {
	return &emailNotifier{
		next:       next,
		logger:     logger,
		key:        conf.SendgridAPIKey,
		from:       sgmail.NewEmail(conf.AppName, conf.DefaultFromEmail),
		to:         sgmail.NewEmail("", conf.OpsEmail),
		subjPrefix: "[" + conf.AppName + "] ",
	}
}

func (svc *emailNotifier) Notify(n core.Notification) {
	svc.next.Notify(n)

	if !(n.Kind == core.NotifyError || n.Kind == core.NotifyWarning) {
		return
	}
	go svc.send(n)
}

func (svc *emailNotifier) send(n core.Notification) {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + string(n.Kind) + ": " + n.Title
	p.AddTos(svc.to)

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", n.Message))

	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.API(req)
	if err != nil {
		svc.logger.Error("sending notification email", err)
		return
	}
	if res.StatusCode >= http.StatusBadRequest {
		svc.logger.Error("sending notification email", res.Body)
	}
}
