package ingest

import (
	"bufio"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jaibojo/txo-crm/internal/model"
)


// ReadMbox parses an mbox archive and emits one raw record per message per
// counterpart contact: the sender for inbound mail, each external recipient
// for outbound mail. Direction is decided by the sender's domain against
// ownDomains.
func ReadMbox(path string, ownDomains []string) ([]model.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()

	records, err := parseMbox(f, ownDomains)
	if err != nil {
		return nil, err
	}

	zap.L().Info("ingest: loaded mailbox archive",
		zap.String("path", path),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func parseMbox(r io.Reader, ownDomains []string) ([]model.RawRecord, error) {
	var records []model.RawRecord
	seq := 0

	flush := func(raw []string) error {
		if len(raw) == 0 {
			return nil
		}
		seq++
		recs, err := parseMessage(strings.Join(raw, "\n"), seq, ownDomains)
		if err != nil {
			// Malformed messages are skipped, not fatal for the archive.
			zap.L().Warn("ingest: skipping unparseable message",
				zap.Int("seq", seq),
				zap.Error(err),
			)
			return nil
		}
		records = append(records, recs...)
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var current []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "From ") {
			if err := flush(current); err != nil {
				return nil, err
			}
			current = nil
			continue
		}
		// mbox quoting escapes body lines that begin with "From " by
		// prepending ">"; unquoting removes exactly one of them.
		if strings.HasPrefix(line, ">") && strings.HasPrefix(strings.TrimLeft(line, ">"), "From ") {
			line = line[1:]
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: scan mbox")
	}
	if err := flush(current); err != nil {
		return nil, err
	}
	return records, nil
}

func parseMessage(text string, seq int, ownDomains []string) ([]model.RawRecord, error) {
	msg, err := mail.ReadMessage(strings.NewReader(text))
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read message headers")
	}

	bodyBytes, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read message body")
	}
	body := stripSignature(string(bodyBytes))

	fromName, fromEmail := parseAddr(msg.Header.Get("From"))
	recipients := parseAddrList(msg.Header.Get("To"), msg.Header.Get("Cc"))

	var sentAt *time.Time
	if t, err := msg.Header.Date(); err == nil {
		u := t.UTC()
		sentAt = &u
	}

	msgID := strings.Trim(msg.Header.Get("Message-ID"), "<> ")
	if msgID == "" {
		msgID = fmt.Sprintf("msg-%d", seq)
	}
	threadID := strings.Trim(msg.Header.Get("In-Reply-To"), "<> ")
	if threadID == "" {
		threadID = msgID
	}
	subject := msg.Header.Get("Subject")

	outbound := isOwnDomain(fromEmail, ownDomains)

	build := func(name, email, direction string, n int) model.RawRecord {
		return model.RawRecord{
			Source:   model.SourceEmail,
			SourceID: fmt.Sprintf("%s#%d", msgID, n),
			Fields: map[string]string{
				"name":      name,
				"email":     email,
				"direction": direction,
				"thread_id": threadID,
				"subject":   subject,
			},
			Body:   subject + "\n" + body,
			SentAt: sentAt,
		}
	}

	var records []model.RawRecord
	if outbound {
		n := 0
		for _, rcpt := range recipients {
			if isOwnDomain(rcpt.Address, ownDomains) {
				continue
			}
			records = append(records, build(rcpt.Name, rcpt.Address, "outbound", n))
			n++
		}
	} else if fromEmail != "" {
		records = append(records, build(fromName, fromEmail, "inbound", 0))
	}
	return records, nil
}

// stripSignature cuts the body at the conventional "-- " delimiter line so
// signature text never feeds the phrase scanner. Mailers that trim trailing
// whitespace emit the delimiter as a bare "--".
func stripSignature(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if strings.TrimRight(line, " \t") == "--" {
			lines = lines[:i]
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func parseAddr(raw string) (name, email string) {
	addr, err := mail.ParseAddress(raw)
	if err != nil {
		return "", ""
	}
	return addr.Name, strings.ToLower(addr.Address)
}

func parseAddrList(lists ...string) []*mail.Address {
	var out []*mail.Address
	for _, raw := range lists {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		addrs, err := mail.ParseAddressList(raw)
		if err != nil {
			continue
		}
		for _, a := range addrs {
			a.Address = strings.ToLower(a.Address)
			out = append(out, a)
		}
	}
	return out
}

func isOwnDomain(email string, ownDomains []string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	for _, d := range ownDomains {
		if strings.EqualFold(domain, d) {
			return true
		}
	}
	return false
}
