package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/cardcycle/internal/domain"
)

// GeminiParser implements Parser against the Gemini API. The client is
// injected so callers control credentials and tests can fake transport.
type GeminiParser struct {
	client *genai.Client
	model  string
}

// NewGeminiParser wraps an existing genai client.
func NewGeminiParser(client *genai.Client, model string) *GeminiParser {
	return &GeminiParser{client: client, model: model}
}

// NewGeminiParserFromEnv builds a client with ambient credentials
// (GEMINI_API_KEY or application default credentials).
func NewGeminiParserFromEnv(ctx context.Context, model string) (*GeminiParser, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiParser{client: client, model: model}, nil
}

// statementSchema constrains the model to the RawStatement shape. The plan
// column travels verbatim so bank rules can interpret it downstream.
func statementSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"dueDate":     {Type: genai.TypeString},
			"closingDate": {Type: genai.TypeString},
			"transactions": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"date":               {Type: genai.TypeString},
						"detail":             {Type: genai.TypeString},
						"amount":             {Type: genai.TypeNumber},
						"type":               {Type: genai.TypeString, Description: "PURCHASE, INSTALLMENT, TAX_FEE, or PAYMENT"},
						"plan":               {Type: genai.TypeString, Description: "Raw text from the CUOTA/PLAN column"},
						"installmentCurrent": {Type: genai.TypeInteger},
						"installmentTotal":   {Type: genai.TypeInteger},
					},
					Required: []string{"date", "detail", "amount"},
				},
			},
		},
	}
}

func jsonConfig(schema *genai.Schema) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
		Temperature:      genai.Ptr[float32](0),
	}
}

func statementPrompt(bank domain.BankProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analiza este resumen de %s.\n", bank.Name)
	b.WriteString("Extrae TODAS las líneas de consumo, impuestos y pagos.\n")
	b.WriteString("Si existe una columna CUOTA/PLAN, devuelve su texto crudo en el campo 'plan'.\n")
	b.WriteString("Extrae las fechas de CIERRE y VENCIMIENTO del resumen.\n")
	if len(bank.Columns) > 0 {
		fmt.Fprintf(&b, "Columnas del resumen: %s.\n", strings.Join(bank.Columns, ", "))
	}
	if bank.ClosingDateKeywords != "" {
		fmt.Fprintf(&b, "La fecha de cierre aparece como: %s.\n", bank.ClosingDateKeywords)
	}
	if bank.DueDateKeywords != "" {
		fmt.Fprintf(&b, "La fecha de vencimiento aparece como: %s.\n", bank.DueDateKeywords)
	}
	b.WriteString("Responde JSON puro.")
	return b.String()
}

// ParseStatement sends one PDF to the model and decodes the structured reply.
func (p *GeminiParser) ParseStatement(ctx context.Context, pdf []byte, bank domain.BankProfile) (RawStatement, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: "application/pdf", Data: pdf}},
				{Text: statementPrompt(bank)},
			},
		},
	}
	return p.generateStatement(ctx, contents)
}

// ParseImages sends statement screenshots to the model. All images go in a
// single request so the model can stitch rows that span captures.
func (p *GeminiParser) ParseImages(ctx context.Context, images [][]byte, bank domain.BankProfile) (RawStatement, error) {
	parts := make([]*genai.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: "image/png", Data: img}})
	}
	parts = append(parts, &genai.Part{Text: statementPrompt(bank)})

	contents := []*genai.Content{{Role: "user", Parts: parts}}
	return p.generateStatement(ctx, contents)
}

func (p *GeminiParser) generateStatement(ctx context.Context, contents []*genai.Content) (RawStatement, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, jsonConfig(statementSchema()))
	if err != nil {
		return RawStatement{}, fmt.Errorf("generate content: %w", err)
	}
	raw := resp.Text()
	if raw == "" {
		return RawStatement{}, fmt.Errorf("empty response from model")
	}

	var stmt RawStatement
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &stmt); err != nil {
		return RawStatement{}, fmt.Errorf("unmarshal model response: %w", err)
	}
	return stmt, nil
}

// AnalyzeBankFormat asks the model to describe an unknown statement layout.
// The result is a draft profile for the user to confirm, never saved as-is.
func (p *GeminiParser) AnalyzeBankFormat(ctx context.Context, pdf []byte) (domain.BankProfile, error) {
	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":                {Type: genai.TypeString},
			"columns":             {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"currencySymbol":      {Type: genai.TypeString},
			"dueDateKeywords":     {Type: genai.TypeString},
			"closingDateKeywords": {Type: genai.TypeString},
		},
	}
	prompt := "Extrae metadata de este resumen bancario: 1. name, 2. columns, " +
		"3. currencySymbol, 4. closingDateKeywords, 5. dueDateKeywords. Responde JSON puro."

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: "application/pdf", Data: pdf}},
				{Text: prompt},
			},
		},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, jsonConfig(schema))
	if err != nil {
		return domain.BankProfile{}, fmt.Errorf("analyze bank format: %w", err)
	}

	var profile domain.BankProfile
	if err := json.Unmarshal([]byte(cleanModelJSON(resp.Text())), &profile); err != nil {
		return domain.BankProfile{}, fmt.Errorf("unmarshal bank profile: %w", err)
	}
	return profile, nil
}

// ParseServiceBill extracts the billed amount from a service bill's text
// content (e.g. an email body).
func (p *GeminiParser) ParseServiceBill(ctx context.Context, content, serviceName string) (BillResult, error) {
	schema := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"serviceName": {Type: genai.TypeString},
			"date":        {Type: genai.TypeString},
			"amount":      {Type: genai.TypeNumber},
			"currency":    {Type: genai.TypeString},
		},
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: fmt.Sprintf("Factura %s: %s", serviceName, content)}},
		},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, jsonConfig(schema))
	if err != nil {
		return BillResult{}, fmt.Errorf("parse service bill: %w", err)
	}

	var bill BillResult
	if err := json.Unmarshal([]byte(cleanModelJSON(resp.Text())), &bill); err != nil {
		return BillResult{}, fmt.Errorf("unmarshal bill: %w", err)
	}
	return bill, nil
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the JSON-only instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost JSON value if junk surrounds it. The opener
	// seen first decides whether we trim to an object or an array.
	objStart := strings.Index(s, "{")
	arrStart := strings.Index(s, "[")
	open, closer := "{", "}"
	if objStart == -1 || (arrStart != -1 && arrStart < objStart) {
		open, closer = "[", "]"
	}
	start := strings.Index(s, open)
	end := strings.LastIndex(s, closer)
	if start != -1 && end > start {
		return strings.TrimSpace(s[start : end+1])
	}
	return s
}
