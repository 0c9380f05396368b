package provisioning

import (
	"encoding/json"
	"errors"
	"strings"

	"hysteriabot/m/v2/app/models"
)

// accountSchema mirrors get-user output. Required fields are pointers so a
// missing key is told apart from a zero value.
type accountSchema struct {
	UploadBytes         *int64  `json:"upload_bytes"`
	DownloadBytes       *int64  `json:"download_bytes"`
	Status              string  `json:"status"`
	MaxDownloadBytes    *int64  `json:"max_download_bytes"`
	ExpirationDays      *int    `json:"expiration_days"`
	AccountCreationDate *string `json:"account_creation_date"`
	Blocked             bool    `json:"blocked"`
	Password            string  `json:"password"`
}

func parseAccountDetails(output string) (*models.AccountDetails, error) {
	var raw accountSchema
	if err := json.Unmarshal([]byte(output), &raw); err != nil {
		return nil, err
	}
	if raw.MaxDownloadBytes == nil || raw.ExpirationDays == nil {
		return nil, errors.New("missing max_download_bytes or expiration_days")
	}
	details := &models.AccountDetails{
		UploadBytes:      raw.UploadBytes,
		DownloadBytes:    raw.DownloadBytes,
		Status:           raw.Status,
		MaxDownloadBytes: *raw.MaxDownloadBytes,
		ExpirationDays:   *raw.ExpirationDays,
		Blocked:          raw.Blocked,
		Password:         raw.Password,
	}
	if details.Status == "" {
		details.Status = "Unknown"
	}
	if raw.AccountCreationDate != nil {
		details.AccountCreationDate = *raw.AccountCreationDate
	}
	return details, nil
}

const (
	uriScheme       = "hy2://"
	singboxLabel    = "Singbox Sublink:"
	normalSubLabel  = "Normal-SUB Sublink:"
	ipWarningMarker = "Warning: IP4 or IP6"
)

// parseConnection reads show-user-uri output:
//
//	IPv4:
//	hy2://...
//	Singbox Sublink:
//	https://...
//	Normal-SUB Sublink:
//	https://...
func parseConnection(output string) (*Connection, error) {
	lines := strings.Split(output, "\n")
	conn := &Connection{}
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case line == "", line == "IPv4:", line == "IPv6:", strings.Contains(line, ipWarningMarker):
			continue
		case strings.HasPrefix(line, uriScheme):
			if conn.URI == "" {
				conn.URI = line
			}
		case strings.HasPrefix(line, singboxLabel):
			conn.SingboxSublink, i = labelValue(lines, i, singboxLabel)
		case strings.HasPrefix(line, normalSubLabel):
			conn.NormalSublink, i = labelValue(lines, i, normalSubLabel)
		}
	}
	if conn.URI == "" {
		return nil, errors.New("no hy2:// URI in output")
	}
	return conn, nil
}

// labelValue returns the value printed after a label, either on the same
// line or on the next one, and the index of the last consumed line.
func labelValue(lines []string, i int, label string) (string, int) {
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(lines[i]), label))
	if rest != "" {
		return rest, i
	}
	if i+1 < len(lines) {
		return strings.TrimSpace(lines[i+1]), i + 1
	}
	return "", i
}
