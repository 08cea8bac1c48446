package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrExternalNotFound means the provider has no record of the company
	ErrExternalNotFound = errors.New("company not found at provider")
	// ErrExternalRateLimited means the provider refused the call for quota reasons
	ErrExternalRateLimited = errors.New("provider rate limit exceeded")
	// ErrInvalidResponse means the provider answered with a payload that is not a company
	ErrInvalidResponse = errors.New("invalid provider response")
)

// ExternalTransportError is any other provider failure. StatusCode is zero
// when no response was received.
type ExternalTransportError struct {
	StatusCode int
	Err        error
}

func (e *ExternalTransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider returned status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider request failed: %v", e.Err)
}

func (e *ExternalTransportError) Unwrap() error {
	return e.Err
}

// Provider fetches one company by normalized cnpj
type Provider interface {
	Fetch(ctx context.Context, cnpj string) (*ProviderCompany, error)
}

// ProviderCompany is the provider's company document
type ProviderCompany struct {
	CNPJ                      string              `json:"cnpj"`
	RazaoSocial               string              `json:"razao_social"`
	NomeFantasia              string              `json:"nome_fantasia"`
	CodigoNaturezaJuridica    *int64              `json:"codigo_natureza_juridica"`
	NaturezaJuridica          string              `json:"natureza_juridica"`
	QualificacaoResponsavel   *int64              `json:"qualificacao_do_responsavel"`
	CapitalSocial             decimal.NullDecimal `json:"capital_social"`
	CodigoPorte               *int64              `json:"codigo_porte"`
	Porte                     string              `json:"porte"`
	EnteFederativo            string              `json:"ente_federativo_responsavel"`
	IdentificadorMatrizFilial *int64              `json:"identificador_matriz_filial"`
	SituacaoCadastral         *int64              `json:"situacao_cadastral"`
	DescricaoSituacao         string              `json:"descricao_situacao_cadastral"`
	DataSituacaoCadastral     string              `json:"data_situacao_cadastral"`
	MotivoSituacaoCadastral   *int64              `json:"motivo_situacao_cadastral"`
	NomeCidadeExterior        string              `json:"nome_cidade_no_exterior"`
	CodigoPais                *int64              `json:"codigo_pais"`
	DataInicioAtividade       string              `json:"data_inicio_atividade"`
	CNAEFiscal                *int64              `json:"cnae_fiscal"`
	CNAEFiscalDescricao       string              `json:"cnae_fiscal_descricao"`
	CNAEsSecundarios          []ProviderActivity  `json:"cnaes_secundarios"`
	DescricaoTipoLogradouro   string              `json:"descricao_tipo_de_logradouro"`
	Logradouro                string              `json:"logradouro"`
	Numero                    string              `json:"numero"`
	Complemento               string              `json:"complemento"`
	Bairro                    string              `json:"bairro"`
	CEP                       string              `json:"cep"`
	UF                        string              `json:"uf"`
	Municipio                 string              `json:"municipio"`
	CodigoMunicipio           *int64              `json:"codigo_municipio"`
	DDDTelefone1              string              `json:"ddd_telefone_1"`
	DDDTelefone2              string              `json:"ddd_telefone_2"`
	DDDFax                    string              `json:"ddd_fax"`
	Email                     string              `json:"email"`
	SituacaoEspecial          string              `json:"situacao_especial"`
	DataSituacaoEspecial      string              `json:"data_situacao_especial"`
	OpcaoPeloSimples          *bool               `json:"opcao_pelo_simples"`
	DataOpcaoPeloSimples      string              `json:"data_opcao_pelo_simples"`
	DataExclusaoDoSimples     string              `json:"data_exclusao_do_simples"`
	OpcaoPeloMEI              *bool               `json:"opcao_pelo_mei"`
	DataOpcaoPeloMEI          string              `json:"data_opcao_pelo_mei"`
	DataExclusaoDoMEI         string              `json:"data_exclusao_do_mei"`
	QSA                       []ProviderPartner   `json:"qsa"`
}

// ProviderActivity is one secondary activity entry
type ProviderActivity struct {
	Codigo    int64  `json:"codigo"`
	Descricao string `json:"descricao"`
}

// ProviderPartner is one entry of the partner list
type ProviderPartner struct {
	IdentificadorSocio          *int64 `json:"identificador_de_socio"`
	NomeSocio                   string `json:"nome_socio"`
	CNPJCPFSocio                string `json:"cnpj_cpf_do_socio"`
	CodigoQualificacaoSocio     *int64 `json:"codigo_qualificacao_socio"`
	QualificacaoSocio           string `json:"qualificacao_socio"`
	DataEntradaSociedade        string `json:"data_entrada_sociedade"`
	CodigoPais                  *int64 `json:"codigo_pais"`
	CPFRepresentanteLegal       string `json:"cpf_representante_legal"`
	NomeRepresentanteLegal      string `json:"nome_representante_legal"`
	CodigoQualificacaoRepresent *int64 `json:"codigo_qualificacao_representante_legal"`
	CodigoFaixaEtaria           *int64 `json:"codigo_faixa_etaria"`
}

const maxResponseSize = 4 << 20

// HTTPProvider calls a REST lookup API at GET {base}{formatted cnpj}
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPProvider creates a provider client
func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &HTTPProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Fetch(ctx context.Context, cnpj string) (*ProviderCompany, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+FormatCNPJ(cnpj), nil)
	if err != nil {
		return nil, &ExternalTransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &ExternalTransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &ExternalTransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrExternalNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrExternalRateLimited
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &ExternalTransportError{StatusCode: resp.StatusCode, Err: errors.New(snippet(body))}
	}

	var company ProviderCompany
	if err := json.Unmarshal(body, &company); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if company.CNPJ == "" {
		return nil, fmt.Errorf("%w: missing cnpj", ErrInvalidResponse)
	}
	return &company, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	if s == "" {
		return "empty body"
	}
	return s
}
