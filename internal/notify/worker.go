package notify

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
)

// Render builds the message for args.
func Render(args EmailJobArgs) (Message, error) {
	switch args.Template {
	case TemplateWelcome:
		return Message{
			To:      args.Email,
			Subject: "Thanks for joining in!",
			Body:    fmt.Sprintf("Welcome to the app, %s. Let me know how you get along with the app.", args.Name),
		}, nil
	case TemplateCancellation:
		return Message{
			To:      args.Email,
			Subject: "Sorry to see you go!",
			Body:    fmt.Sprintf("Goodbye, %s. I hope to see you back sometime soon.", args.Name),
		}, nil
	default:
		return Message{}, fmt.Errorf("unknown email template %q", args.Template)
	}
}

type EmailWorker struct {
	river.WorkerDefaults[EmailJobArgs]
	mailer Mailer
}

func NewEmailWorker(mailer Mailer) *EmailWorker {
	return &EmailWorker{mailer: mailer}
}

func (w *EmailWorker) Work(ctx context.Context, job *river.Job[EmailJobArgs]) error {
	msg, err := Render(job.Args)
	if err != nil {
		// Retrying will not make an unknown template known.
		return river.JobCancel(err)
	}
	if err := w.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send %s email: %w", job.Args.Template, err)
	}
	return nil
}
