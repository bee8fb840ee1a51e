package proxysel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectorPrecedenceTorFirst(t *testing.T) {
	s := New("http://h:1", "https://h:2", true)
	assert.Equal(t, torProxyURL, s.selected())
}

func TestSelectorPrecedenceHttpsOverHttp(t *testing.T) {
	s := New("http://h:1", "https://h:2", false)
	assert.Equal(t, "https://h:2", s.selected())
}

func TestSelectorFallsBackToHttp(t *testing.T) {
	s := New("http://h:1", "", false)
	assert.Equal(t, "http://h:1", s.selected())
}

func TestSelectorNoneConfigured(t *testing.T) {
	s := New("", "", false)
	assert.Equal(t, "", s.selected())
	assert.Nil(t, s.RequestProxyURL())
	assert.Nil(t, s.ConnectionFactory())
}

func TestSelectorSocksUsesConnectionFactoryNotRequestURL(t *testing.T) {
	s := New("", "", true)
	assert.Nil(t, s.RequestProxyURL())
	assert.NotNil(t, s.ConnectionFactory())
}

func TestSelectorHttpUsesRequestURLNotConnectionFactory(t *testing.T) {
	s := New("http://127.0.0.1:8080", "", false)
	u := s.RequestProxyURL()
	assert.NotNil(t, u)
	assert.Equal(t, "http", u.Scheme)
	assert.Nil(t, s.ConnectionFactory())
}
