package workflow

// Step kind identifiers. The internal pipeline has 4 stages; the "Prazos &
// Etapas" pipeline has 12. Kinds are stable identifiers persisted on steps
// and on the contract's current_step pointer, so they never change.
const (
	StepPreApproval = "pre_approval"
	StepFinancial   = "financial"
	StepDirector    = "director"
	StepLegal       = "legal"

	StepPropostaSolicitacao    = "proposta_solicitacao"
	StepPropostaMkt            = "proposta_mkt"
	StepAnaliseAudi            = "analise_audi"
	StepAprovacaoMktTorra      = "aprovacao_mkt_torra"
	StepJuridicoTorra          = "juridico_torra"
	StepRenovacaoSemTroca      = "renovacao_sem_troca"
	StepRenovacaoComTroca      = "renovacao_com_troca"
	StepOrcamentoProducao      = "orcamento_producao"
	StepProducaoInstalacao     = "producao_instalacao"
	StepCheckingInstalacao     = "checking_instalacao"
	StepRenovacaoNaoAutorizada = "renovacao_nao_autorizada"
	StepRetiradaMidias         = "retirada_midias"
)

// Template identifiers
const (
	TemplateInternal = "internal"
	TemplatePrazos   = "prazos"
)

// Renewal kinds accepted by the renewal entry point
const (
	RenewalNoSwap   = "no_swap"
	RenewalWithSwap = "with_swap"
)

// TemplateEntry pairs a step kind with its SLA in days. A nil SLA means the
// step carries no deadline.
type TemplateEntry struct {
	StepID  string
	SLADays *int
}

func days(n int) *int {
	return &n
}

// templates is the static step template registry. Order matters: steps are
// created in this order and it is the canonical approval sequence.
var templates = map[string][]TemplateEntry{
	TemplateInternal: {
		{StepPreApproval, days(3)},
		{StepFinancial, days(5)},
		{StepDirector, days(7)},
		{StepLegal, days(7)},
	},
	TemplatePrazos: {
		{StepPropostaSolicitacao, days(1)},
		{StepPropostaMkt, days(7)},
		{StepAnaliseAudi, days(3)},
		{StepAprovacaoMktTorra, days(15)},
		{StepJuridicoTorra, days(30)},
		{StepRenovacaoSemTroca, nil},
		{StepRenovacaoComTroca, days(15)},
		{StepOrcamentoProducao, days(5)},
		{StepProducaoInstalacao, days(10)},
		{StepCheckingInstalacao, nil},
		{StepRenovacaoNaoAutorizada, nil},
		{StepRetiradaMidias, days(7)},
	},
}

// Template returns the ordered entries for a template id
func Template(templateID string) ([]TemplateEntry, error) {
	entries, ok := templates[templateID]
	if !ok {
		return nil, ErrInvalidTemplate
	}
	return entries, nil
}

// TemplateIDs returns the known template identifiers
func TemplateIDs() []string {
	return []string{TemplateInternal, TemplatePrazos}
}

// RenewalEntry maps a renewal kind to its single-step template entry.
// A renewal without media swap has no SLA; one with swap gets 15 days.
func RenewalEntry(kind string) (TemplateEntry, error) {
	switch kind {
	case RenewalNoSwap:
		return TemplateEntry{StepID: StepRenovacaoSemTroca}, nil
	case RenewalWithSwap:
		return TemplateEntry{StepID: StepRenovacaoComTroca, SLADays: days(15)}, nil
	default:
		return TemplateEntry{}, ErrInvalidTemplate
	}
}

// editableFields maps a step kind to the contract fields the UI lets the
// user edit while that stage is current. Consumed by the UI layer only; the
// engine itself never reads it.
var editableFields = map[string][]string{
	StepPreApproval:         {"shopping_name", "client_name", "media_type", "value"},
	StepFinancial:           {"value"},
	StepDirector:            {"value", "start_date", "end_date"},
	StepLegal:               {"start_date", "end_date"},
	StepPropostaSolicitacao: {"shopping_name", "client_name", "media_type", "value"},
	StepPropostaMkt:         {"media_type", "value"},
	StepAprovacaoMktTorra:   {"value"},
	StepJuridicoTorra:       {"start_date", "end_date"},
	StepRenovacaoSemTroca:   {"end_date"},
	StepRenovacaoComTroca:   {"media_type", "end_date"},
	StepOrcamentoProducao:   {"value"},
}

// EditableFields returns the contract fields editable while the given step
// kind is current. Unknown or locked-down kinds return nil.
func EditableFields(stepID string) []string {
	return editableFields[stepID]
}
