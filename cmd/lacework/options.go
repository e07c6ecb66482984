package main

// Options is the root command that groups sub-commands. The struct tags are
// interpreted by github.com/jessevdk/go-flags. Credential flags win over
// LW_* environment variables, which win over the YAML profile file.
type Options struct {
	Profile    string `short:"p" long:"profile" description:"profile name in the config file or secrets manager"`
	ConfigFile string `short:"c" long:"config" description:"YAML profile file (default ~/.lacework.yaml)"`
	Account    string `short:"a" long:"account" description:"account name, e.g. acme or acme.lacework.net"`
	Subaccount string `long:"subaccount" description:"sub-account sent in Account-Name"`
	APIKey     string `short:"k" long:"api-key" description:"API key id"`
	APISecret  string `short:"s" long:"api-secret" description:"API secret"`
	Domain     string `long:"domain" description:"base domain (default lacework.net)"`
	BaseURL    string `long:"base-url" description:"override https://{account}.{domain}" hidden:"true"`
	OrgAccess  bool   `long:"org" description:"run at organization scope"`
	AWS        bool   `long:"aws" description:"resolve the profile from AWS Secrets Manager"`
	Debug      bool   `short:"d" long:"debug" description:"log requests and responses to stderr"`

	Get    GetCmd    `command:"get" description:"GET a path and print the JSON body"`
	Items  ItemsCmd  `command:"items" description:"Walk every page of a collection and print one item per line"`
	Search SearchCmd `command:"search" description:"POST a search filter and print every match, one per line"`
	Token  TokenCmd  `command:"token" description:"Acquire an access token and print its expiry"`

	Profiles ProfilesCmd `command:"profiles" description:"List the profiles stored in AWS Secrets Manager"`
}

// requestFlags are shared by the commands that send a request.
type requestFlags struct {
	Params []string `short:"P" long:"param" description:"query parameter key=value (repeatable)"`
	Org    bool     `long:"org-call" description:"org-level access for this call only"`
}
