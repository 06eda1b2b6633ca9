package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/rapid100/triage/internal/types"
)

// DriveArchiver mirrors finalized call records to a Google Drive folder for
// off-site auditing. Entirely optional: archive failures never block
// finalization.
type DriveArchiver struct {
	service    *drive.Service
	folderName string
	folderID   string
}

// NewDriveArchiver creates a Drive client from stored credentials. Unlike
// an interactive tool, a service cannot prompt for authorization, so a
// missing or invalid token is an error.
func NewDriveArchiver(credentialsFile, tokenFile, folderName string) (*DriveArchiver, error) {
	ctx := context.Background()

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client, err := clientFromToken(config, tokenFile)
	if err != nil {
		return nil, err
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive service: %v", err)
	}

	da := &DriveArchiver{
		service:    srv,
		folderName: folderName,
	}
	if err := da.ensureFolder(); err != nil {
		return nil, err
	}
	return da, nil
}

func clientFromToken(config *oauth2.Config, tokenFile string) (*http.Client, error) {
	f, err := os.Open(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read token file %s: %v", tokenFile, err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("unable to decode token file: %v", err)
	}
	return config.Client(context.Background(), tok), nil
}

// ensureFolder finds or creates the archive folder.
func (da *DriveArchiver) ensureFolder() error {
	query := fmt.Sprintf("name='%s' and mimeType='application/vnd.google-apps.folder' and trashed=false",
		da.folderName)

	r, err := da.service.Files.List().Q(query).Spaces("drive").Fields("files(id, name)").Do()
	if err != nil {
		return fmt.Errorf("unable to search for folder: %v", err)
	}
	if len(r.Files) > 0 {
		da.folderID = r.Files[0].Id
		return nil
	}

	folder := &drive.File{
		Name:     da.folderName,
		MimeType: "application/vnd.google-apps.folder",
	}
	created, err := da.service.Files.Create(folder).Fields("id").Do()
	if err != nil {
		return fmt.Errorf("unable to create folder: %v", err)
	}
	da.folderID = created.Id
	return nil
}

// Archive uploads a finalized record as JSON, retrying transient failures
// with backoff. The last error is returned after three attempts.
func (da *DriveArchiver) Archive(snap types.CallSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal call record: %v", err)
	}

	name := fmt.Sprintf("call_%s.json", snap.CallID)
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		file := &drive.File{
			Name:     name,
			MimeType: "application/json",
			Parents:  []string{da.folderID},
		}
		_, lastErr = da.service.Files.Create(file).
			Media(bytes.NewReader(data)).
			Fields("id, webViewLink").
			Do()
		if lastErr == nil {
			return nil
		}
		log.Printf("archive: upload attempt %d/3 for call %s failed: %v", attempt, snap.CallID, lastErr)
		if attempt < 3 {
			time.Sleep(time.Duration(attempt*attempt) * time.Second)
		}
	}
	return fmt.Errorf("drive upload failed after 3 attempts: %v", lastErr)
}
