package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/atotto/clipboard"

	"certbind/request"
)

// console is the interactive surface of a run: subject collection before the
// request is generated, and the signed-certificate path prompt after the
// operator returns from the out-of-band signing step.
type console interface {
	Identity() (request.SubjectIdentity, error)
	SANs() ([]string, error)
	Export(csr []byte) error
	CertificatePath() (string, error)
}

// surveyConsole prompts the operator on the terminal. out is separate from
// the survey streams so tests can capture what gets printed.
type surveyConsole struct {
	out  io.Writer
	opts []survey.AskOpt
}

func newSurveyConsole() *surveyConsole {
	return &surveyConsole{out: os.Stdout}
}

// Identity implements console.
func (c *surveyConsole) Identity() (request.SubjectIdentity, error) {
	qs := []*survey.Question{
		{
			Name:     "commonName",
			Prompt:   &survey.Input{Message: "Common name (console FQDN):"},
			Validate: survey.Required,
		},
		{
			Name:     "organization",
			Prompt:   &survey.Input{Message: "Organization:"},
			Validate: survey.Required,
		},
		{
			Name:     "organizationalUnit",
			Prompt:   &survey.Input{Message: "Organizational unit:"},
			Validate: survey.Required,
		},
		{
			Name:     "locality",
			Prompt:   &survey.Input{Message: "City/locality:"},
			Validate: survey.Required,
		},
		{
			Name:     "state",
			Prompt:   &survey.Input{Message: "State/province:"},
			Validate: survey.Required,
		},
		{
			Name:     "country",
			Prompt:   &survey.Input{Message: "Country code (2 letters):"},
			Validate: survey.Required,
		},
	}

	var id request.SubjectIdentity
	if err := survey.Ask(qs, &id, c.opts...); err != nil {
		return request.SubjectIdentity{}, err
	}
	return id, nil
}

// SANs implements console. Entries are collected in order until the
// operator submits an empty line; duplicates are kept as entered.
func (c *surveyConsole) SANs() ([]string, error) {
	var sans []string
	for {
		var s string
		err := survey.AskOne(
			&survey.Input{Message: "Subject alternative name (blank to finish):"},
			&s, c.opts...,
		)
		if err != nil {
			return nil, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return sans, nil
		}
		sans = append(sans, s)
	}
}

// Export implements console. The request is always printed; copying to the
// clipboard is offered on top since most operators paste it into a CA
// portal.
func (c *surveyConsole) Export(csr []byte) error {
	fmt.Fprintf(c.out, "\n%s\n", csr)

	copyIt := true
	err := survey.AskOne(
		&survey.Confirm{Message: "Copy the request to the clipboard?", Default: true},
		&copyIt, c.opts...,
	)
	if err != nil {
		return err
	}
	if copyIt {
		if err := clipboard.WriteAll(string(csr)); err != nil {
			return fmt.Errorf("error copying to clipboard: %w", err)
		}
	}
	return nil
}

// CertificatePath implements console.
func (c *surveyConsole) CertificatePath() (string, error) {
	var p string
	err := survey.AskOne(
		&survey.Input{Message: "Path to the CA-signed certificate file:"},
		&p, append(c.opts, survey.WithValidator(survey.Required))...,
	)
	return strings.TrimSpace(p), err
}
