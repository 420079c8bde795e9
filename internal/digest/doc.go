// Package digest renders published reports into a short management digest
// and delivers it by email (SES v2) or to a chat webhook.
package digest
