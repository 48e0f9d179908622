package uploader

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"studio-go/internal/studio"
)

// YouTubePublisher publishes queue items to YouTube using a service account.
type YouTubePublisher struct {
	service *youtube.Service
}

// NewYouTubePublisher creates a publisher authenticated with the service
// account credentials at serviceAccountFile.
func NewYouTubePublisher(ctx context.Context, serviceAccountFile string) (*YouTubePublisher, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read service account file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(data, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account: %w", err)
	}

	service, err := youtube.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create YouTube service: %w", err)
	}

	return &YouTubePublisher{service: service}, nil
}

// Publish uploads the media stream and returns the YouTube video id.
func (p *YouTubePublisher) Publish(ctx context.Context, meta studio.UploadMetadata, media io.Reader) (string, error) {
	status := &youtube.VideoStatus{
		PrivacyStatus:           string(meta.PrivacyStatus),
		SelfDeclaredMadeForKids: false,
	}
	if meta.PublishAt != "" {
		// A scheduled video must sit private until YouTube flips it live.
		status.PrivacyStatus = string(studio.PrivacyPrivate)
		status.PublishAt = meta.PublishAt
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
		},
		Status: status,
	}

	call := p.service.Videos.Insert([]string{"snippet", "status"}, video)
	call = call.Media(media)

	response, err := call.Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}

	return response.Id, nil
}

// Compile-time check that YouTubePublisher implements the Publisher interface
var _ Publisher = (*YouTubePublisher)(nil)
