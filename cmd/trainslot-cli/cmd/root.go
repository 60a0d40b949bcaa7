package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var BaseUrl string

var client *resty.Client

var (
	username string
	email    string
	password string
)

var rootCmd = &cobra.Command{
	Use:   "trainslot-cli",
	Short: "trainslot-cli is a CLI interface for the training sign-up service.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "display name used on the sign-up site")
	rootCmd.PersistentFlags().StringVar(&email, "email", "", "email used on the sign-up site")
	rootCmd.PersistentFlags().StringVar(&password, "password", os.Getenv("TRAINSLOT_PASSWORD"), "service access password")
}

func Execute() {
	client = resty.New().SetBaseURL(BaseUrl)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type identityBody struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

func identity() identityBody {
	return identityBody{
		Username: username,
		Email:    email,
		Password: password,
	}
}

// post sends body as JSON and decodes the response into out, failing on
// any non-2xx status with the server's error message.
func post(cmd *cobra.Command, path string, body any, out any) error {
	res, err := client.R().
		SetContext(cmd.Context()).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
	if err != nil {
		return err
	}
	return decode(res, out)
}

func get(cmd *cobra.Command, path string, query map[string]string, out any) error {
	res, err := client.R().
		SetContext(cmd.Context()).
		SetQueryParams(query).
		SetCookie(&http.Cookie{Name: "email", Value: email}).
		SetCookie(&http.Cookie{Name: "password", Value: password}).
		Get(path)
	if err != nil {
		return err
	}
	return decode(res, out)
}

func decode(res *resty.Response, out any) error {
	if res.IsError() {
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(res.Body(), &body) == nil && body.Error != "" {
			return fmt.Errorf("%s: %s", res.Status(), body.Error)
		}
		return fmt.Errorf("%s", res.Status())
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(res.Body(), out)
}
