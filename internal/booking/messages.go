package booking

// Customer-facing replies. The shop operates in Brazilian Portuguese.
const (
	MsgMissingFields   = "Para confirmar, informe o Nome do Serviço, Dia, Horário, seu Nome e Telefone."
	MsgServiceNotFound = "Serviço %s não encontrado. Por favor, verifique o nome."
	MsgInvalidDate     = "Data inválida. Por favor, repita o dia e horário."
	MsgSlotTaken       = "Este horário já está reservado. Por favor, escolha outro horário."
	MsgConfirmed       = "Agendamento confirmado. Serviço: %s. Cliente: %s. Data: %s."
	MsgTechnicalError  = "Ocorreu um erro técnico. Tente novamente."
)

// DisplayLayout formats appointment times in confirmations.
const DisplayLayout = "02/01/2006 15:04"
