package chat

import (
	"fmt"

	"github.com/marcosgomes068/espeto-bot/pkg/models"
)

// Messages renders every customer-facing reply. Texts are the ones the
// product ships: Brazilian Portuguese, lightly formatted for chat.
type Messages struct {
	MenuURL string
	Contact string
}

func (m Messages) Welcome() string {
	return "🍖 *Bem-vindo ao nosso atendimento!* 🍖\n\n" +
		"Para fazer um pedido, acesse nosso cardápio digital:\n" +
		m.MenuURL + "\n\n" +
		"Depois, copie os itens desejados e envie no formato:\n" +
		"*PEDIDO - ESPETINHOS*\n" +
		"[Seus itens aqui]\n\n" +
		"Comandos disponíveis:\n" +
		commandList + "\n\n" +
		"📞 *Contato:* " + m.Contact
}

func (m Messages) Menu() string {
	return "🍖 *Nosso Cardápio* 🍖\n\n" +
		"Acesse nosso cardápio digital: " + m.MenuURL + "\n\n" +
		"Para fazer um pedido, copie os itens desejados e envie no formato:\n" +
		"*PEDIDO - ESPETINHOS*\n" +
		"[Seus itens aqui]\n\n" +
		"📞 *Contato:* " + m.Contact
}

func (m Messages) Help() string {
	return "📱 *Comandos Disponíveis*\n\n" +
		commandList + "\n\n" +
		"Para fazer um pedido, envie:\n" +
		"*PEDIDO - ESPETINHOS*\n" +
		"[Seus itens aqui]"
}

func (m Messages) UnknownCommand() string {
	return "❌ Comando não reconhecido.\n\n" +
		"Comandos disponíveis:\n" +
		commandList + "\n\n" +
		"Ou acesse nosso cardápio: " + m.MenuURL
}

func (m Messages) OrderReceived(code string) string {
	return "🍖 *PEDIDO RECEBIDO!* 🍖\n\n" +
		fmt.Sprintf("Código do pedido: *%s*\n\n", code) +
		"Para confirmar seu pedido, envie: /confirmar\n" +
		"Para cancelar seu pedido, envie: /cancelar\n" +
		"Para verificar o status, envie: /status\n\n" +
		"Aguarde a confirmação do estabelecimento."
}

func (m Messages) OrderConfirmed(code string) string {
	return "✅ Pedido confirmado!\n" +
		fmt.Sprintf("Código do pedido: *%s*\n\n", code) +
		"Em breve você receberá uma mensagem quando o pedido estiver pronto para entrega."
}

func (m Messages) OrderStatus(code string, status models.Status) string {
	return "📊 *Status do Pedido*\n" +
		fmt.Sprintf("Código: *%s*\n", code) +
		fmt.Sprintf("Status: %s", status)
}

func (m Messages) OrderCancelled() string {
	return "❌ Pedido cancelado com sucesso."
}

func (m Messages) LimitReached() string {
	return "❌ Você já tem o número máximo de pedidos ativos.\n" +
		"Por favor, aguarde a finalização de um pedido ou cancele um existente."
}

func (m Messages) AlreadyConfirmed() string {
	return "❌ Este pedido já foi confirmado anteriormente."
}

func (m Messages) CannotCancelFinalized() string {
	return "❌ Não é possível cancelar um pedido já finalizado."
}

func (m Messages) NoOrder() string {
	return "❌ Nenhum pedido encontrado para este número."
}

func (m Messages) GenericError() string {
	return "❌ Ocorreu um erro ao processar sua mensagem. Por favor, tente novamente."
}

func (m Messages) Expired(code string) string {
	return "⚠️ *Aviso de Timeout*\n\n" +
		fmt.Sprintf("Seu pedido %s expirou por inatividade.\n", code) +
		"Por favor, faça um novo pedido se desejar."
}

// StatusNotification returns the push notification for an operator status
// change, or "" when the status has no customer-facing notice.
func (m Messages) StatusNotification(status models.Status) string {
	switch status {
	case models.StatusEmPreparo:
		return "🍳 *Seu pedido está sendo preparado!*\n\n" +
			"Assim que estiver pronto, você será notificado."
	case models.StatusPronto:
		return "✅ *Seu pedido está pronto!*\n\n" +
			"O entregador sairá em instantes para fazer a entrega."
	case models.StatusEmEntrega:
		return "🛵 *Seu pedido está a caminho!*\n\n" +
			"O entregador saiu para fazer a entrega."
	case models.StatusEntregue:
		return "🎉 *Pedido entregue com sucesso!*\n\n" +
			"Obrigado por escolher nossos serviços!\n" +
			"Esperamos que você tenha gostado.\n\n" +
			"Para fazer um novo pedido, envie:\n" +
			"*PEDIDO - ESPETINHOS*\n" +
			"[Seus itens aqui]\n\n" +
			"📞 *Contato:* " + m.Contact
	}
	return ""
}

const commandList = "• /cardapio - Ver cardápio\n" +
	"• /confirmar - Confirmar pedido\n" +
	"• /cancelar - Cancelar pedido\n" +
	"• /status - Verificar status\n" +
	"• /ajuda - Ver ajuda"
