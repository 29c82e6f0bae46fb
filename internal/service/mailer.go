package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v2"
	"github.com/spf13/viper"
	"gopkg.in/gomail.v2"
)

// Mailer wraps an SMTP dialer cached by the effective mail
// configuration. Changing any part of the config tuple (host, port,
// secure, user, from) produces a new cache key and therefore a fresh
// dialer on the next send; entries also age out after a short TTL.
type Mailer struct {
	cache *ttlcache.Cache
}

func NewMailer() *Mailer {
	c := ttlcache.NewCache()
	c.SetTTL(5 * time.Minute)
	c.SkipTTLExtensionOnHit(true)

	return &Mailer{cache: c}
}

// Configured reports whether outbound mail can be sent at all. Flows
// that depend on mail (password reset links) check this up front.
func (m *Mailer) Configured() bool {
	return viper.GetString("mail.host") != "" && viper.GetString("mail.from") != ""
}

func (m *Mailer) Send(to []string, subject, htmlBody string) error {
	if !m.Configured() {
		return errors.New("mail transport not configured")
	}

	if len(to) == 0 {
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", viper.GetString("mail.from"))
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	return m.dialer().DialAndSend(msg)
}

func (m *Mailer) dialer() *gomail.Dialer {
	key := fmt.Sprintf("%s:%d:%t:%s:%s",
		viper.GetString("mail.host"),
		viper.GetInt("mail.port"),
		viper.GetBool("mail.secure"),
		viper.GetString("mail.user"),
		viper.GetString("mail.from"))

	if v, err := m.cache.Get(key); err == nil {
		return v.(*gomail.Dialer)
	}

	d := gomail.NewDialer(
		viper.GetString("mail.host"),
		viper.GetInt("mail.port"),
		viper.GetString("mail.user"),
		viper.GetString("mail.password"))
	d.SSL = viper.GetBool("mail.secure")

	m.cache.Set(key, d)
	return d
}
