// backend/scraper/rundeck_trigger.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// RundeckTrigger starts the analytics jobs through the Rundeck web UI, the same way an operator
// would: log in, open each job page and submit its "Run Job Now" form. After submitting every job
// it waits a fixed margin for the jobs to fill the exchange output sheets.
type RundeckTrigger struct {
	client   *http.Client
	baseURL  string
	project  string
	username string
	password string
	jobIDs   []string
	wait     time.Duration
}

// NewRundeckTrigger creates a trigger with its own cookie-backed session.
func NewRundeckTrigger(baseURL, project, username, password string, jobIDs []string, requestTimeout, wait time.Duration) (*RundeckTrigger, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &RundeckTrigger{
		client:   &http.Client{Timeout: requestTimeout, Jar: jar},
		baseURL:  strings.TrimRight(baseURL, "/"),
		project:  project,
		username: username,
		password: password,
		jobIDs:   jobIDs,
		wait:     wait,
	}, nil
}

// Trigger logs in, runs every configured job and then blocks for the configured wait.
func (t *RundeckTrigger) Trigger(ctx context.Context) error {
	if len(t.jobIDs) == 0 {
		log.Println("WARN Scraper: No Rundeck job ids configured, nothing to trigger")
	} else {
		if err := t.login(ctx); err != nil {
			return err
		}
		for _, id := range t.jobIDs {
			if err := t.runJob(ctx, id); err != nil {
				return err
			}
		}
	}

	log.Printf("Scraper: Waiting %s for the output sheets to be filled...\n", t.wait)
	timer := time.NewTimer(t.wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *RundeckTrigger) login(ctx context.Context) error {
	loginURL := t.baseURL + "/user/login"
	doc, pageURL, err := t.getDocument(ctx, loginURL)
	if err != nil {
		return fmt.Errorf("failed to open Rundeck login page: %w", err)
	}

	form := doc.Find("input#login").Closest("form")
	if form.Length() == 0 {
		form = doc.Find("form").First()
	}
	fields := formFields(form)
	fields.Set(inputName(form.Find("input#login"), "j_username"), t.username)
	fields.Set(inputName(form.Find("input#password"), "j_password"), t.password)

	action := resolveAction(pageURL, form, "j_security_check")
	resp, err := t.postForm(ctx, action, fields)
	if err != nil {
		return fmt.Errorf("failed to submit Rundeck login: %w", err)
	}
	final := resp.Request.URL.Path
	if strings.Contains(final, "/user/error") || strings.Contains(final, "/user/login") {
		return fmt.Errorf("Rundeck login rejected for user '%s'", t.username)
	}
	log.Printf("Scraper: Logged in to Rundeck as %s\n", t.username)
	return nil
}

func (t *RundeckTrigger) runJob(ctx context.Context, jobID string) error {
	jobURL := fmt.Sprintf("%s/project/%s/job/show/%s", t.baseURL, url.PathEscape(t.project), url.PathEscape(jobID))
	doc, pageURL, err := t.getDocument(ctx, jobURL)
	if err != nil {
		return fmt.Errorf("failed to open Rundeck job %s: %w", jobID, err)
	}

	button := doc.Find("#execFormRunButton")
	form := button.Closest("form")
	if form.Length() == 0 {
		return fmt.Errorf("run form not found on Rundeck job page %s", jobID)
	}

	fields := formFields(form)
	if name, ok := button.Attr("name"); ok && name != "" {
		fields.Set(name, button.AttrOr("value", ""))
	}
	action := resolveAction(pageURL, form, "")
	if _, err := t.postForm(ctx, action, fields); err != nil {
		return fmt.Errorf("failed to run Rundeck job %s: %w", jobID, err)
	}
	log.Printf("Scraper: Triggered Rundeck job %s\n", jobID)
	return nil
}

func (t *RundeckTrigger) getDocument(ctx context.Context, pageURL string) (*goquery.Document, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, nil, err
	}
	res, err := t.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get URL %s: %w", pageURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("failed to get URL %s: status code %d", pageURL, res.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse HTML from %s: %w", pageURL, err)
	}
	return doc, res.Request.URL, nil
}

func (t *RundeckTrigger) postForm(ctx context.Context, action string, fields url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(fields.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("POST %s: status code %d", action, resp.StatusCode)
	}
	return resp, nil
}

// formFields collects the submittable values of a form: inputs (checked boxes only), textareas and selected options.
func formFields(form *goquery.Selection) url.Values {
	fields := url.Values{}
	form.Find("input[name]").Each(func(_ int, in *goquery.Selection) {
		name, _ := in.Attr("name")
		switch strings.ToLower(in.AttrOr("type", "text")) {
		case "submit", "button", "image", "reset", "file":
			return
		case "checkbox", "radio":
			if _, checked := in.Attr("checked"); !checked {
				return
			}
			fields.Add(name, in.AttrOr("value", "on"))
		default:
			fields.Add(name, in.AttrOr("value", ""))
		}
	})
	form.Find("textarea[name]").Each(func(_ int, ta *goquery.Selection) {
		name, _ := ta.Attr("name")
		fields.Add(name, ta.Text())
	})
	form.Find("select[name]").Each(func(_ int, sel *goquery.Selection) {
		name, _ := sel.Attr("name")
		opt := sel.Find("option[selected]").First()
		if opt.Length() == 0 {
			opt = sel.Find("option").First()
		}
		if opt.Length() > 0 {
			fields.Add(name, opt.AttrOr("value", strings.TrimSpace(opt.Text())))
		}
	})
	return fields
}

func inputName(in *goquery.Selection, fallback string) string {
	if name, ok := in.Attr("name"); ok && name != "" {
		return name
	}
	return fallback
}

// resolveAction turns a form's action attribute into an absolute URL relative to the page it came from.
func resolveAction(page *url.URL, form *goquery.Selection, fallback string) string {
	action := strings.TrimSpace(form.AttrOr("action", ""))
	if action == "" {
		action = fallback
	}
	ref, err := url.Parse(action)
	if err != nil {
		return page.String()
	}
	return page.ResolveReference(ref).String()
}
