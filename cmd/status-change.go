package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const statusChangeSubject = "Status update to your suggested dataset / L’équipe du gouvernement ouvert"

// statuses dated on or before this are ignored
var statusEpoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

const statusChangeText = `Good day,

Your ‘Suggest a Dataset’ submission on open.canada.ca has an update!

Access it here: {{ .EnglishURL }}

Leave feedback or ask questions using the Comment feature, found on the bottom of the page.

Have another idea for a dataset?  Use our ‘Suggest a Dataset Form’ to submit your suggestions!

https://open.canada.ca/en/suggested-datasets

Thank you,

The Open Government Team


Bonjour.

Une mise à jour est disponible concernant la proposition d’un jeu de données que vous avez faite sur ouvert.canada.ca!

Pour y accéder, veuillez suivre le lien suivant : {{ .FrenchURL }}

Pour tout commentaire ou toute question, veuillez cliquer sur le bouton « Commentaire » au bas de la page.

Vous avez un autre jeu de données à proposer? Soumettez-le-nous à l’aide du «Formulaire de proposition d’un jeu de données!»

https://ouvert.canada.ca/fr/jeux-de-donnees-suggeres

Cordialement,

L’équipe du gouvernement ouvert
`

const statusChangeHTML = `<html>
<head></head>
<body>
<p>Good day,</p>
<p>Your ‘Suggest a Dataset’ submission on open.canada.ca has an update!</p>
<p>Access it here: <a href="{{ .EnglishURL }}">{{ .EnglishURL }}</a></p>
<p>Leave feedback or ask questions using the Comment feature, found on the bottom of the page.</p>
<p>Have another idea for a dataset?  Use our <a href="https://open.canada.ca/en/suggested-datasets">‘Suggest a Dataset Form’</a> to submit your suggestions!</p>
<br>
<p>Thank you,<br>The Open Government Team</p>
<hr>
<p>Bonjour.</p>
<p>Une mise à jour est disponible concernant la proposition d’un jeu de données que vous avez faite sur ouvert.canada.ca!</p>
<p>Pour y accéder, veuillez suivre le lien suivant : <a href="{{ .FrenchURL }}">{{ .FrenchURL }}</a></p>
<p>Pour tout commentaire ou toute question, veuillez cliquer sur le bouton « Commentaire » au bas de la page.</p>
<p>Vous avez un autre jeu de données à proposer? Soumettez-le-nous à l’aide du <a href="https://ouvert.canada.ca/fr/jeux-de-donnees-suggeres">«Formulaire de proposition d’un jeu de données!»</a></p>
<br>
<p>Cordialement,<br>L’équipe du gouvernement ouvert</p>
</body>
</html>
`

var (
	statusChangeTextTemplate = texttemplate.Must(texttemplate.New("text").Parse(statusChangeText))
	statusChangeHTMLTemplate = htmltemplate.Must(htmltemplate.New("html").Parse(statusChangeHTML))
)

type statusChangeLinks struct {
	EnglishURL string
	FrenchURL  string
}

// notificationMailer delivers a message with plain text and html alternatives
type notificationMailer interface {
	send(to mail.Address, subject, text, html string) error
}

// smtpMailer sends through a plain SMTP relay
type smtpMailer struct {
	from   mail.Address
	server string
	auth   smtp.Auth
}

func newSMTPMailer(cfg portalConfigMail) *smtpMailer {
	m := smtpMailer{
		from:   mail.Address{Name: cfg.FromName, Address: cfg.From},
		server: cfg.Host + ":" + strconv.Itoa(cfg.Port),
	}

	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &m
}

func (m *smtpMailer) send(to mail.Address, subject, text, html string) error {
	msg, err := buildNotification(m.from, to, subject, text, html)
	if err != nil {
		return err
	}

	return smtp.SendMail(m.server, m.auth, m.from.Address, []string{to.Address}, msg)
}

// buildNotification assembles a multipart/alternative message with quoted
// printable bodies
func buildNotification(from, to mail.Address, subject, text, html string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", text},
		{"text/html; charset=UTF-8", html},
	}

	for _, part := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}

		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(part.content)); err != nil {
			return nil, err
		}

		if err := qp.Close(); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from.String())
	fmt.Fprintf(&msg, "To: %s\r\n", to.String())
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", mw.Boundary())
	fmt.Fprintf(&msg, "\r\n")
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}

// ckan suggested dataset status history
type ckanStatusUpdate struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

type ckanSuggestion struct {
	ID     string             `json:"id"`
	Status []ckanStatusUpdate `json:"status"`
}

// currentStatus is the reason attached to the most recent dated update
func (s ckanSuggestion) currentStatus() string {
	latest := statusEpoch
	current := ""

	for _, update := range s.Status {
		date, err := time.Parse("2006-01-02", update.Date)
		if err != nil {
			continue
		}

		if date.After(latest) {
			latest = date
			current = update.Reason
		}
	}

	return current
}

// suggestedDataset is the part of an indexed suggestion the job cares about
type suggestedDataset struct {
	ID     string
	Status string
}

type statusChangeStats struct {
	rows     int
	noEmail  int
	invalid  int
	missing  int
	changed  int
	sent     int
	failed   int
	jsonSkip int
}

type statusChangeJob struct {
	core        *solrCore
	statusField string
	recordURL   urlTemplate
	mailer      notificationMailer
	logger      *zap.SugaredLogger
	stats       statusChangeStats
}

// parseCKANStatuses reads one json suggestion per line, returning the
// current status by id.  malformed lines are logged and skipped.
func (j *statusChangeJob) parseCKANStatuses(r io.Reader) (map[string]string, error) {
	statuses := make(map[string]string)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var s ckanSuggestion
		if err := json.Unmarshal([]byte(text), &s); err != nil || s.ID == "" {
			j.stats.jsonSkip++
			j.logger.Warnf("[STATUS] skipping malformed CKAN line %d", line)
			continue
		}

		statuses[s.ID] = s.currentStatus()
	}

	return statuses, scanner.Err()
}

func (j *statusChangeJob) lookup(ctx context.Context, id string) (*suggestedDataset, error) {
	req := solrRequest{handler: "select"}

	req.json.Params.Q = fmt.Sprintf(`id:"%s"`, filterValueEscaper.Replace(id))
	req.json.Params.Rows = 2
	req.json.Params.Wt = "json"
	req.json.Params.Fl = []string{"id", j.statusField}

	res, err := j.core.query(ctx, j.logger, &req)
	if err != nil {
		return nil, err
	}

	if len(res.Response.Docs) != 1 {
		return nil, nil
	}

	doc := res.Response.Docs[0]

	return &suggestedDataset{
		ID:     documentString(doc, "id"),
		Status: documentString(doc, j.statusField),
	}, nil
}

// run compares every submission having an email address against the
// indexed status, notifying submitters whose suggestion changed
func (j *statusChangeJob) run(ctx context.Context, drupal io.Reader, statuses map[string]string) error {
	reader := csv.NewReader(drupal)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read Drupal CSV header: %w", err)
	}

	columns := make(map[string]int)
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, utf8ByteOrderMark))] = i
	}

	uuidCol, ok1 := columns["uuid"]
	emailCol, ok2 := columns["email"]
	if ok1 == false || ok2 == false {
		return errors.New("drupal CSV must have uuid and email columns")
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return fmt.Errorf("failed to read Drupal CSV: %w", err)
		}

		j.stats.rows++

		if emailCol >= len(row) || uuidCol >= len(row) || strings.TrimSpace(row[emailCol]) == "" {
			j.stats.noEmail++
			continue
		}

		j.process(ctx, strings.TrimSpace(row[uuidCol]), strings.TrimSpace(row[emailCol]), statuses)
	}

	return nil
}

func (j *statusChangeJob) process(ctx context.Context, id, email string, statuses map[string]string) {
	to, err := mail.ParseAddress(email)
	if err != nil {
		j.stats.invalid++
		j.logger.Debugf("[STATUS] invalid email for %s: %s", id, err.Error())
		return
	}

	sd, err := j.lookup(ctx, id)
	if err != nil {
		j.stats.failed++
		j.logger.Errorf("[STATUS] lookup failed for %s: %s", id, err.Error())
		return
	}

	if sd == nil {
		j.stats.missing++
		j.logger.Debugf("[STATUS] no record found in Solr for %s", id)
		return
	}

	current, ok := statuses[id]
	if ok == false || current == "" || current == sd.Status {
		return
	}

	j.stats.changed++
	j.logger.Infof("[STATUS] %s changed: [%s] => [%s]", id, sd.Status, current)

	links := statusChangeLinks{
		EnglishURL: getLocalizedURL(j.recordURL, "en", id),
		FrenchURL:  getLocalizedURL(j.recordURL, "fr", id),
	}

	var text, html bytes.Buffer

	if err := statusChangeTextTemplate.Execute(&text, links); err != nil {
		j.stats.failed++
		j.logger.Errorf("[STATUS] render failed for %s: %s", id, err.Error())
		return
	}

	if err := statusChangeHTMLTemplate.Execute(&html, links); err != nil {
		j.stats.failed++
		j.logger.Errorf("[STATUS] render failed for %s: %s", id, err.Error())
		return
	}

	if err := j.mailer.send(*to, statusChangeSubject, text.String(), html.String()); err != nil {
		j.stats.failed++
		j.logger.Errorf("[STATUS] notification to %s failed: %s", to.Address, err.Error())
		return
	}

	j.stats.sent++
}

func (j *statusChangeJob) logSummary() {
	j.logger.Infow("[STATUS] summary",
		"rows", j.stats.rows,
		"no_email", j.stats.noEmail,
		"invalid_email", j.stats.invalid,
		"not_indexed", j.stats.missing,
		"changed", j.stats.changed,
		"sent", j.stats.sent,
		"failed", j.stats.failed,
		"malformed_ckan_lines", j.stats.jsonSkip,
	)
}

func statusChangeCommand() *cli.Command {
	return &cli.Command{
		Name:  "check-status-change",
		Usage: "Notify submitters of suggested datasets whose status changed",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "drupal-csv",
				Aliases:  []string{"drupal_csv"},
				Usage:    "Drupal suggested dataset export (uuid, email)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "ckan-jsonl",
				Aliases:  []string{"ckan_jsonl"},
				Usage:    "CKAN suggested dataset export, one json record per line",
				Required: true,
			},
		},
		Action: statusChangeAction,
	}
}

func statusChangeAction(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	defer logger.Sync()

	drupalPath := cmd.String("drupal-csv")
	ckanPath := cmd.String("ckan-jsonl")

	if _, err := os.Stat(drupalPath); err != nil {
		return cli.Exit(fmt.Sprintf("Drupal CSV file not found: %s", drupalPath), 1)
	}

	if _, err := os.Stat(ckanPath); err != nil {
		return cli.Exit(fmt.Sprintf("CKAN JSONL file not found: %s", ckanPath), 1)
	}

	defs, err := loadDatasetDefinitions(cfg.Datasets.Dir, []string{cfg.StatusChange.Dataset})
	if err != nil || len(defs) == 0 {
		return cli.Exit(fmt.Sprintf("suggested dataset definition [%s] not available", cfg.StatusChange.Dataset), 1)
	}

	def := defs[0]

	job := statusChangeJob{
		core:        newSolrCore(cfg.Solr.Host, def.Solr.Core, newSolrClient(cfg.Solr.ConnTimeout, cfg.Solr.ReadTimeout)),
		statusField: cfg.StatusChange.StatusField,
		recordURL:   def.RecordURL,
		mailer:      newSMTPMailer(cfg.Mail),
		logger:      logger,
	}

	ckanFile, err := os.Open(ckanPath)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	defer ckanFile.Close()

	statuses, err := job.parseCKANStatuses(ckanFile)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to read CKAN JSONL: %s", err.Error()), 1)
	}

	drupalFile, err := os.Open(drupalPath)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	defer drupalFile.Close()

	if err := job.run(ctx, drupalFile, statuses); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	job.logSummary()

	return nil
}
