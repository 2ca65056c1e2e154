package img

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"github.com/myrjola/verdict/cmd/cli/game"
	"github.com/myrjola/verdict/internal/errors"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"image/png"
	"os"
)

var Group = &cobra.Group{
	ID:    "img",
	Title: "Image operations",
}

// ImageCreator is the image endpoint of an OpenAI client.
type ImageCreator interface {
	CreateImage(ctx context.Context, request openai.ImageRequest) (openai.ImageResponse, error)
}

func portraitPrompt(dossier string) string {
	return "A courtroom sketch in charcoal of the defendant of the following case. Show only the defendant, " +
		"seated in the dock, with no text in the image.\n\n" + dossier
}

// NewPortraitCommand draws the defendant of a game with Dall-E.
func NewPortraitCommand(open game.Opener, images func() ImageCreator) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "portrait [game id]",
		GroupID: Group.ID,
		Short:   "Draw the defendant",
		Long:    `Generates a courtroom sketch of the defendant from the game dossier with Dall-E`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outPath, err := cmd.Flags().GetString("out")
			if err != nil {
				return errors.Wrap(err, "invalid out flag")
			}

			ctx := cmd.Context()
			games, closeFn, err := open(ctx)
			if err != nil {
				return errors.Wrap(err, "open game service")
			}
			state, err := games.GetGame(ctx, args[0])
			if closeErr := closeFn(); closeErr != nil && err == nil {
				err = closeErr
			}
			if err != nil {
				return errors.Wrap(err, "get game")
			}

			if err = drawPortrait(ctx, images(), state.Dossier, outPath); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "The portrait was saved as %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().String("out", "./defendant.png", "path to generated image file")
	return cmd
}

func drawPortrait(ctx context.Context, images ImageCreator, dossier, outPath string) error {
	request := openai.ImageRequest{ //nolint:exhaustruct // defaults are fine for the rest
		Model:          openai.CreateImageModelDallE3,
		Prompt:         portraitPrompt(dossier),
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		N:              1,
	}

	response, err := images.CreateImage(ctx, request)
	if err != nil {
		return errors.Wrap(err, "create image")
	}
	if len(response.Data) == 0 {
		return errors.New("no image in response")
	}

	imgBytes, err := base64.StdEncoding.DecodeString(response.Data[0].B64JSON)
	if err != nil {
		return errors.Wrap(err, "decode base64")
	}

	imgData, err := png.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return errors.Wrap(err, "decode png")
	}

	file, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(err, "create file")
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)

	if err = png.Encode(file, imgData); err != nil {
		return errors.Wrap(err, "encode png")
	}
	return nil
}
