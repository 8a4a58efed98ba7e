package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hszk-dev/streamgate/internal/codec"
)

var errInvalidToken = errors.New("not a valid token")

func newEncodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode <storage-key>",
		Short: "Print the public token for a storage key",
		Long: `Encode a storage key into the opaque token clients use in stream URLs.

The backend the key will be routed to is printed after the token.

Examples:
  streamctl encode shows/pilot/episode-01.mp4
  streamctl encode 1AbCdEfGhIjKlMnOpQrStUvWxYz012345`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := codecFromFlags(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.Encode(args[0]), codec.Classify(args[0]))
			return nil
		},
	}
	envString(cmd.Flags(), "codec-secret", "CODEC_SECRET", "token codec secret")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <token>",
		Short: "Print the storage key behind a public token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := codecFromFlags(cmd)
			if err != nil {
				return err
			}
			key, ok := c.Open(args[0])
			if !ok {
				return errInvalidToken
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	envString(cmd.Flags(), "codec-secret", "CODEC_SECRET", "token codec secret")
	return cmd
}

func codecFromFlags(cmd *cobra.Command) (*codec.Codec, error) {
	secret, err := cmd.Flags().GetString("codec-secret")
	if err != nil {
		return nil, err
	}
	return codec.New(secret)
}
